package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trade-journal/internal/config"
	"trade-journal/internal/database"
	"trade-journal/internal/functions"
	"trade-journal/internal/journal"
	"trade-journal/internal/logger"
	"trade-journal/internal/store"
	"trade-journal/internal/trace"
)

// App holds the dependencies shared by every command.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Service *journal.Service

	configDir string
	userID    string
}

// User returns the --user flag or the configured default user.
func (a *App) User() string {
	if a.userID != "" {
		return a.userID
	}
	return a.Config.Journal.DefaultUser
}

func (a *App) init() error {
	cfg, err := config.LoadConfig(a.configDir)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	a.Config = cfg

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.File)
	if err != nil {
		return fmt.Errorf("could not initialize logger: %w", err)
	}
	a.Logger = log

	if err := trace.Init(cfg.Tracing.Enabled, os.Stderr); err != nil {
		return fmt.Errorf("could not initialize tracing: %w", err)
	}

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		return err
	}
	st := store.New(db, log)
	fn := functions.NewClient(&cfg.Functions, log)
	a.Service = journal.NewService(cfg.Journal, st, fn, log)
	return nil
}

func (a *App) close() {
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	_ = trace.Shutdown(context.Background())
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:           "journal",
		Short:         "Trading journal toolkit",
		Long:          "Import, export and analyze a trading journal from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&app.configDir, "config", "./configs", "directory containing config.yml")
	rootCmd.PersistentFlags().StringVar(&app.userID, "user", "", "journal owner (defaults to journal.default_user)")

	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newExportCmd(app))
	rootCmd.AddCommand(newTemplateCmd(app))
	rootCmd.AddCommand(newStatsCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newActivateCmd(app))

	return rootCmd
}
