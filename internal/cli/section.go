package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newSectionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "section",
		Short: "Read or replace one section of an entry",
	}
	cmd.AddCommand(newSectionShowCommand(), newSectionEditCommand())
	return cmd
}

func parseIndex(raw string) (int, error) {
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("section index %q is not a number", raw)
	}
	return index, nil
}

func newSectionShowCommand() *cobra.Command {
	var (
		ref  discussionRef
		gist string
	)
	cmd := &cobra.Command{
		Use:   "show <comment-id> <index>",
		Short: "Print a section body and the activity digest for the day before the entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			d, sess, view, err := loadJournal(cmd, ref)
			if err != nil {
				return err
			}
			comment, err := findComment(view, args[0])
			if err != nil {
				return err
			}
			if gist == "" {
				if st, err := d.state.Load(); err == nil {
					gist = st.SettingsGistID
				}
			}
			edit, err := d.svc.BeginEdit(cmd.Context(), sess, comment.Body, index, gist)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, edit.Heading)
			fmt.Fprintln(out, edit.EditBody)
			switch {
			case !edit.Digest.Available:
				fmt.Fprintf(out, "\n-- digest unavailable: %s\n", edit.Digest.Message)
			case edit.Digest.Empty:
				fmt.Fprintf(out, "\n-- no activity on %s\n", edit.Digest.SinceDate)
			default:
				fmt.Fprintf(out, "\n-- activity on %s\n%s\n", edit.Digest.SinceDate, strings.TrimRight(edit.Digest.Text, "\n"))
			}
			return nil
		},
	}
	addRefFlags(cmd, &ref)
	cmd.Flags().StringVar(&gist, "gist", "", "Settings gist id for the digest service (default: from state)")
	return cmd
}

func newSectionEditCommand() *cobra.Command {
	var (
		ref  discussionRef
		file string
	)
	cmd := &cobra.Command{
		Use:   "edit <comment-id> <index>",
		Short: "Replace the body of a section and save the entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			text, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			d, sess, view, err := loadJournal(cmd, ref)
			if err != nil {
				return err
			}
			comment, err := findComment(view, args[0])
			if err != nil {
				return err
			}
			result, err := d.svc.SaveSection(cmd.Context(), sess, comment.ID, comment.Body, index, strings.TrimRight(text, "\n"))
			if err != nil {
				return err
			}
			LoggerFromContext(cmd.Context()).Info("section saved", "comment_id", result.Comment.ID, "index", index)
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%d sections)\n", result.Comment.ID, len(result.Sections))
			return nil
		},
	}
	addRefFlags(cmd, &ref)
	cmd.Flags().StringVar(&file, "file", "-", "File holding the new section body (\"-\" for stdin)")
	return cmd
}
