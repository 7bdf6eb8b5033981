package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/maloquacious/semver"
	"github.com/spf13/cobra"

	"github.com/joysssdasd/1127/internal/config"
	"github.com/joysssdasd/1127/internal/errorx"
	"github.com/joysssdasd/1127/internal/logger"
	"github.com/joysssdasd/1127/internal/store"
	"github.com/joysssdasd/1127/internal/store/postgres"
)

var version = semver.Version{Minor: 1, PreRelease: "alpha", Build: semver.Commit()}

const readyMessage = "Supabase schema ready."

// app carries what the commands share once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log logger.Logger
	zap *logger.ZapLogger

	newStore func(dsn string, log logger.Logger) store.Store
}

func newApp() *app {
	return &app{
		newStore: func(dsn string, log logger.Logger) store.Store {
			return postgres.New(dsn, log)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	a := newApp()
	err := a.rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "marketdb: %v\n", err)
	}
	_ = a.sync()
	os.Exit(errorx.ExitCode(err))
}

// sync flushes the logger built by setup, if any.
func (a *app) sync() error {
	if a.zap == nil {
		return nil
	}
	return a.zap.Sync()
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "marketdb",
		Short:             "Schema administration for the marketplace database",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "optional TOML config file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	// db command group
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	dbResetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate every marketplace table (DESTROYS ALL DATA)",
		Long: `Drops users, posts, contact_views, deal_stats, point_transactions,
recharge_tasks and search_history, then recreates them with their indexes.

Every row in those tables is permanently deleted. The connection string is
read from SUPABASE_DB_URL unless the config file names another variable.`,
		Args: cobra.NoArgs,
		RunE: a.runDBReset,
	}
	dbVerifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare the live schema with the expected tables, columns and indexes",
		Args:  cobra.NoArgs,
		RunE:  a.runDBVerify,
	}
	dbPlanCmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the reset statements without connecting",
		Args:  cobra.NoArgs,
		RunE:  a.runDBPlan,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// version needs neither config nor logger
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}

	dbCmd.AddCommand(dbResetCmd, dbVerifyCmd, dbPlanCmd)
	rootCmd.AddCommand(dbCmd, versionCmd)
	return rootCmd
}

// setup loads configuration and builds the logger before any command runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	l, err := logger.New(cfg.Log)
	if err != nil {
		return errorx.Wrapf(err, errorx.CodeConfig, "invalid log level %q", cfg.Log.Level)
	}

	a.cfg, a.log, a.zap = cfg, l, l
	a.log.Debug("config: %s", cfg)
	return nil
}

// openStore resolves the DSN and connects. A missing DSN returns before any
// connection attempt.
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	dsn, err := a.cfg.DSN()
	if err != nil {
		return nil, err
	}
	s := a.newStore(dsn, a.log)
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *app) runDBReset(cmd *cobra.Command, args []string) error {
	s, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	a.log.Warn("dropping and recreating all marketplace tables; existing rows will be lost")
	if err := s.Reset(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), readyMessage)
	return nil
}

func (a *app) runDBVerify(cmd *cobra.Command, args []string) error {
	s, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	in, err := s.Inspect(cmd.Context())
	if err != nil {
		return err
	}
	if err := writeJSON(cmd.OutOrStdout(), in); err != nil {
		return errorx.Wrap(err, errorx.CodeExec, "write report")
	}
	if !in.Ready() {
		return errorx.Newf(errorx.CodeDrift, "schema is %s", in.State)
	}
	return nil
}

func (a *app) runDBPlan(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	stmts := postgres.Statements()
	for i, stmt := range stmts {
		if _, err := fmt.Fprintf(w, "-- %d/%d %s\n%s;\n\n", i+1, len(stmts), stmt, stmt.SQL); err != nil {
			return errorx.Wrap(err, errorx.CodeExec, "write plan")
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
