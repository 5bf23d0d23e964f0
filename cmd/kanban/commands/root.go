// Package commands implements the kanban command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"kanban/internal/board"
	"kanban/internal/config"
	"kanban/internal/notify"
	"kanban/internal/session"
	"kanban/internal/storage"
	"kanban/internal/util"
)

var versionInfo = "dev"

// SetVersionInfo sets the string printed by --version.
func SetVersionInfo(version, commit string) {
	versionInfo = fmt.Sprintf("%s (commit: %s)", version, commit)
}

// Execute runs the CLI against os.Args.
func Execute() error {
	root := NewRootCommand(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		newPrinter(os.Stderr).Error(err)
		return err
	}
	return nil
}

// app carries state shared by every subcommand.
type app struct {
	cfgPath string
	user    string
	backend string
	dbPath  string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
	out    *printer
	errOut io.Writer
}

// NewRootCommand builds the command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: newPrinter(out), errOut: errOut}

	root := &cobra.Command{
		Use:   "kanban",
		Short: "Kanban board server and client",
		Long: `kanban keeps per-user boards of lists and projects.

Run "kanban serve" for the HTTP API or use the board, list and project
commands to edit a board directly against the configured backend.`,
		Version:       versionInfo,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgPath, "config", "c", util.EnvOrDefault("KANBAN_CONFIG", ""), "path to a YAML config file")
	flags.StringVarP(&a.user, "user", "u", util.EnvOrDefault("KANBAN_USER", storage.LocalUser), "user whose board to edit")
	flags.StringVar(&a.backend, "backend", "", "storage backend: local, redis or tables")
	flags.StringVar(&a.dbPath, "db", "", "path to the sqlite database (local backend)")
	flags.BoolVar(&a.verbose, "verbose", false, "log backend activity to stderr")

	root.AddCommand(
		a.serveCommand(),
		a.boardCommand(),
		a.listCommand(),
		a.projectCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	_ = godotenv.Load()

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("backend") {
		cfg.Backend = a.backend
	}
	if cmd.Flags().Changed("db") {
		cfg.DBPath = a.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !a.verbose && cmd.Name() != "serve" {
		cfg.Log.Level = "warn"
	}

	a.cfg = cfg
	a.logger = cfg.Log.NewLogger(a.errOut)
	return nil
}

// storeOptions are shared by the CLI and the server.
func (a *app) storeOptions() []board.Option {
	opts := []board.Option{board.WithLogger(a.logger)}
	if len(a.cfg.DefaultLists) > 0 {
		opts = append(opts, board.WithDefaultLists(a.cfg.DefaultLists...))
	}
	if a.cfg.RejectConcurrent {
		opts = append(opts, board.WithRejectConcurrent())
	}
	return opts
}

// withStore opens the backend, runs fn against the user's board and closes
// the backend again.
func (a *app) withStore(ctx context.Context, fn func(*board.Store) error) error {
	backend, closeBackend, err := openBackend(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			a.logger.Warn("close backend", slog.String("error", err.Error()))
		}
	}()

	opts := append(a.storeOptions(), board.WithNotifier(notify.Func(func(msg string, o notify.Options) {
		if o.Kind == notify.Success {
			a.out.Success(msg)
		}
	})))
	sess := session.New()
	store := board.New(backend, sess, opts...)
	stop := board.Watch(ctx, store, sess)
	defer stop()

	sess.SignIn(a.user)
	defer sess.SignOut()
	return fn(store)
}
