// Package cli defines the journal command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gitjournal/api/internal/app"
	"gitjournal/api/internal/config"
	"gitjournal/api/internal/digest"
	"gitjournal/api/internal/discussion"
	"gitjournal/api/internal/graphql"
	"gitjournal/api/internal/localstate"
	"gitjournal/api/internal/logging"
	"gitjournal/api/internal/session"
)

// localLogin names the single user of a CLI state file.
const localLogin = "local"

// Options stores global CLI options shared between commands.
type Options struct {
	StatePath string
	EnvFile   string
	LogLevel  logging.Level
}

// ServiceFactory builds the journal service the commands drive.
type ServiceFactory func(cfg config.Config, state *localstate.Store, logger *slog.Logger) *app.Service

// Execute builds the root command, runs it with args, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	rootCmd := newRootCommand(&Options{EnvFile: ".env", LogLevel: logging.LevelInfo}, logger, defaultServiceFactory)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func defaultServiceFactory(cfg config.Config, state *localstate.Store, logger *slog.Logger) *app.Service {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	gql := graphql.NewClient(cfg.GraphQLURL, graphql.WithHTTPClient(httpClient), graphql.WithLogger(logger))
	repo := discussion.NewRepository(gql, logger)
	digestClient := digest.NewClient(cfg.DigestURL, nil, logger)
	return app.New(cfg, repo, digestClient, state, logger)
}

func newRootCommand(opts *Options, logger *slog.Logger, factory ServiceFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "journal",
		Short:         "journal keeps a daily log in a GitHub Discussion",
		Long:          "journal reads and edits dated entries stored as comments of one GitHub Discussion, section by section.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := logging.ParseLevel(cmd.Flag("log-level").Value.String())
			opts.LogLevel = level
			logger = logging.NewLogger(cmd.ErrOrStderr(), level)

			cfg, err := config.Load(opts.EnvFile)
			if err != nil {
				return err
			}
			statePath := opts.StatePath
			if statePath == "" {
				if statePath, err = localstate.DefaultPath(); err != nil {
					return err
				}
			}
			state := localstate.NewStore(statePath)

			ctx := context.WithValue(cmd.Context(), loggerKey{}, logger)
			ctx = context.WithValue(ctx, depsKey{}, &deps{
				cfg:   cfg,
				state: state,
				svc:   factory(cfg, state, logger),
			})
			if token := strings.TrimSpace(cfg.GitHubToken); token != "" {
				ctx = session.WithSession(ctx, session.Session{AccessToken: token, Login: localLogin})
			}
			cmd.SetContext(ctx)
			logger.Debug("cli initialized", "level", level, "state", statePath)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.StatePath, "state", "", "Path to the local state file (default: user config dir)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", opts.EnvFile, "Optional dotenv file loaded before the environment")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newLoginCheckCommand(),
		newEntriesCommand(),
		newSectionCommand(),
		newDigestCommand(),
		newThreadCommand(),
		newConfigCommand(),
	)
	return cmd
}

type deps struct {
	cfg   config.Config
	state *localstate.Store
	svc   *app.Service
}

type depsKey struct{}

func depsFrom(cmd *cobra.Command) (*deps, error) {
	d, ok := cmd.Context().Value(depsKey{}).(*deps)
	if !ok || d == nil {
		return nil, fmt.Errorf("command %q ran without initialization", cmd.Name())
	}
	return d, nil
}

type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}

func requireSession(cmd *cobra.Command) (session.Session, error) {
	sess, ok := session.FromContext(cmd.Context())
	if !ok {
		return session.Session{}, fmt.Errorf("set GITHUB_TOKEN to use %q: %w", cmd.CommandPath(), session.ErrUnauthenticated)
	}
	return sess, nil
}

func newLoginCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login-check",
		Short: "Verify GITHUB_TOKEN and print the login it belongs to",
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
			login, err := d.svc.Viewer(cmd.Context(), sess)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "authenticated as %s\n", login)
			return nil
		},
	}
}
