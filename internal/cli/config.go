package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gitjournal/api/internal/localstate"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the locally selected journal and template",
	}
	cmd.AddCommand(newConfigShowCommand(), newConfigSetCommand())
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the local state file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := depsFrom(cmd)
			if err != nil {
				return err
			}
			st, err := d.state.Load()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(st)
			if err != nil {
				return fmt.Errorf("encode state: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", d.state.Path(), out)
			return nil
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	var (
		owner, repo, templateFile, gist string
		number                          int
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the selected journal, template or digest settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := depsFrom(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("number") && number <= 0 {
				return fmt.Errorf("--number must be positive")
			}
			var template string
			if flags.Changed("template-file") {
				if template, err = readInput(cmd, templateFile); err != nil {
					return err
				}
			}
			st, err := d.state.Update(func(st *localstate.State) {
				if flags.Changed("owner") {
					st.Owner = owner
				}
				if flags.Changed("repo") {
					st.Repo = repo
				}
				if flags.Changed("number") {
					st.DiscussionNumber = number
				}
				if flags.Changed("template-file") {
					st.Template = template
				}
				if flags.Changed("gist") {
					st.SettingsGistID = gist
				}
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s/%s#%d\n", st.Owner, st.Repo, st.DiscussionNumber)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Repository owner")
	cmd.Flags().StringVar(&repo, "repo", "", "Repository name")
	cmd.Flags().IntVar(&number, "number", 0, "Discussion number")
	cmd.Flags().StringVar(&templateFile, "template-file", "", "New-entry template file (\"-\" for stdin)")
	cmd.Flags().StringVar(&gist, "gist", "", "Settings gist id for the digest service")
	return cmd
}
