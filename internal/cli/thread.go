package cli

import (
	"fmt"
	"net/url"
	"path"
	"strconv"

	"github.com/spf13/cobra"

	"gitjournal/api/internal/localstate"
)

func newThreadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thread",
		Short: "Manage the journal discussion thread",
	}
	cmd.AddCommand(newThreadCreateCommand())
	return cmd
}

func newThreadCreateCommand() *cobra.Command {
	var title, body, bodyFile string
	var remember bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the journal discussion in GITHUB_REPO",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := depsFrom(cmd)
			if err != nil {
				return err
			}
			sess, err := requireSession(cmd)
			if err != nil {
				return err
			}
			if bodyFile != "" {
				if body, err = readInput(cmd, bodyFile); err != nil {
					return err
				}
			}
			created, err := d.svc.CreateThread(cmd.Context(), sess, title, body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", created.URL)

			if remember {
				owner, repo, err := d.cfg.Repository()
				if err != nil {
					return err
				}
				number, ok := discussionNumberFromURL(created.URL)
				if !ok {
					return fmt.Errorf("cannot read discussion number from %q", created.URL)
				}
				if _, err := d.state.Update(func(st *localstate.State) {
					st.Owner, st.Repo, st.DiscussionNumber = owner, repo, number
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "Journal", "Discussion title")
	cmd.Flags().StringVar(&body, "body", "", "Discussion body")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "File holding the discussion body (\"-\" for stdin)")
	cmd.Flags().BoolVar(&remember, "select", true, "Select the new discussion in the state file")
	return cmd
}

// discussionNumberFromURL extracts N from .../discussions/N.
func discussionNumberFromURL(raw string) (int, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return 0, false
	}
	dir, last := path.Split(path.Clean(u.Path))
	if path.Base(dir) != "discussions" {
		return 0, false
	}
	number, err := strconv.Atoi(last)
	if err != nil || number <= 0 {
		return 0, false
	}
	return number, true
}
