package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gitjournal/api/internal/app"
	"gitjournal/api/internal/discussion"
	"gitjournal/api/internal/journal"
	"gitjournal/api/internal/localstate"
	"gitjournal/api/internal/session"
)

// discussionRef identifies the journal thread; flags override the state file.
type discussionRef struct {
	owner  string
	repo   string
	number int
}

func addRefFlags(cmd *cobra.Command, ref *discussionRef) {
	cmd.Flags().StringVar(&ref.owner, "owner", "", "Repository owner (default: from state)")
	cmd.Flags().StringVar(&ref.repo, "repo", "", "Repository name (default: from state)")
	cmd.Flags().IntVar(&ref.number, "number", 0, "Discussion number (default: from state)")
}

func (r discussionRef) resolve(st localstate.State) (discussionRef, error) {
	out := r
	if out.owner == "" {
		out.owner = st.Owner
	}
	if out.repo == "" {
		out.repo = st.Repo
	}
	if out.number == 0 {
		out.number = st.DiscussionNumber
	}
	if out.owner == "" || out.repo == "" || out.number <= 0 {
		return discussionRef{}, fmt.Errorf("no journal selected: pass --owner, --repo and --number or run \"journal config set\"")
	}
	return out, nil
}

func newEntriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List, show and create journal entries",
	}
	cmd.AddCommand(
		newEntriesListCommand(),
		newEntriesShowCommand(),
		newEntriesNewCommand(),
	)
	return cmd
}

// loadJournal resolves the session and the selected discussion, then loads it.
func loadJournal(cmd *cobra.Command, ref discussionRef) (*deps, session.Session, app.DiscussionView, error) {
	d, err := depsFrom(cmd)
	if err != nil {
		return nil, session.Session{}, app.DiscussionView{}, err
	}
	sess, err := requireSession(cmd)
	if err != nil {
		return nil, session.Session{}, app.DiscussionView{}, err
	}
	st, err := d.state.Load()
	if err != nil {
		return nil, session.Session{}, app.DiscussionView{}, err
	}
	ref, err = ref.resolve(st)
	if err != nil {
		return nil, session.Session{}, app.DiscussionView{}, err
	}
	view, err := d.svc.LoadDiscussion(cmd.Context(), sess, ref.owner, ref.repo, ref.number)
	if err != nil {
		return nil, session.Session{}, app.DiscussionView{}, err
	}
	return d, sess, view, nil
}

func findComment(view app.DiscussionView, commentID string) (app.CommentView, error) {
	for _, c := range view.Comments {
		if c.ID == commentID {
			return c, nil
		}
	}
	return app.CommentView{}, fmt.Errorf("comment %s is not among the loaded entries: %w", commentID, discussion.ErrNotFound)
}

func newEntriesListCommand() *cobra.Command {
	var (
		ref   discussionRef
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, view, err := loadJournal(cmd, ref)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d entries)\n", view.Title, len(view.Comments))
			for i, c := range view.Comments {
				if limit > 0 && i >= limit {
					break
				}
				date := c.EntryDate
				if date == "" {
					date = "----------"
				}
				fmt.Fprintf(out, "%s  %s  %s\n", date, c.ID, strings.Join(sectionTitles(c.Sections), ", "))
			}
			return nil
		},
	}
	addRefFlags(cmd, &ref)
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of entries to print (0 for all)")
	return cmd
}

func sectionTitles(sections []journal.Section) []string {
	titles := make([]string, 0, len(sections))
	for _, s := range sections {
		if !s.IsPreamble() {
			titles = append(titles, s.Title())
		}
	}
	return titles
}

func newEntriesShowCommand() *cobra.Command {
	var (
		ref discussionRef
		raw bool
	)
	cmd := &cobra.Command{
		Use:   "show <comment-id>",
		Short: "Print an entry with its section indices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, view, err := loadJournal(cmd, ref)
			if err != nil {
				return err
			}
			comment, err := findComment(view, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				fmt.Fprintln(out, comment.Body)
				return nil
			}
			for i, s := range comment.Sections {
				label := s.Heading
				if s.IsPreamble() {
					label = "(preamble)"
				}
				fmt.Fprintf(out, "[%d] %s\n", i, label)
				for _, line := range s.Lines {
					fmt.Fprintf(out, "    %s\n", line)
				}
			}
			return nil
		},
	}
	addRefFlags(cmd, &ref)
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the unparsed comment body")
	return cmd
}

func newEntriesNewCommand() *cobra.Command {
	var (
		ref          discussionRef
		templateFile string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Post today's entry built from a template",
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
			st, err := d.state.Load()
			if err != nil {
				return err
			}
			resolved, err := ref.resolve(st)
			if err != nil {
				return err
			}
			var template string
			if templateFile != "" {
				if template, err = readInput(cmd, templateFile); err != nil {
					return err
				}
			}
			entry, err := d.svc.NewEntry(cmd.Context(), sess, resolved.owner, resolved.repo, resolved.number, template)
			if err != nil {
				return err
			}
			LoggerFromContext(cmd.Context()).Info("entry created", "comment_id", entry.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s\n", entry.ID, entry.URL)
			return nil
		},
	}
	addRefFlags(cmd, &ref)
	cmd.Flags().StringVar(&templateFile, "template-file", "", "Template file (\"-\" for stdin; default: saved template)")
	return cmd
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
