package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gitjournal/api/internal/journal"
)

func newDigestCommand() *cobra.Command {
	var since, until, gist string
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print the activity digest for a date range (default: yesterday)",
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
			if since == "" {
				since = journal.PreviousDay(time.Now())
			}
			if until == "" {
				until = since
			}
			if gist == "" {
				if st, err := d.state.Load(); err == nil {
					gist = st.SettingsGistID
				}
			}
			text, err := d.svc.Digest(cmd.Context(), sess, gist, since, until)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(text, "\n"))
			return nil
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&until, "until", "", "Last day, YYYY-MM-DD (default: --since)")
	cmd.Flags().StringVar(&gist, "gist", "", "Settings gist id (default: from state)")
	return cmd
}
