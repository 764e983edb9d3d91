package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/config"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/database"
	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/logging"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	cfg config.Config
	log *zap.Logger
}

type rootFlags struct {
	configFile string
	dbType     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var (
		flags rootFlags
		a     app
	)

	root := &cobra.Command{
		Use:          "logiflow",
		Short:        "Batch ETL for e-commerce delivery data",
		Long:         "Extracts Fake Store API and Olist CSV data, validates it and upserts it into SQLite or PostgreSQL.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path := flags.configFile
			if path == "" {
				path = config.Find()
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if flags.dbType != "" {
				cfg.Database.Type = flags.dbType
			}
			if flags.logLevel != "" {
				cfg.Logging.Level = flags.logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			a = app{cfg: cfg, log: log}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "Config file path (default: config/config.yaml when present)")
	root.PersistentFlags().StringVar(&flags.dbType, "db", "", "Database backend: sqlite or postgres")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override logging.level")

	root.AddCommand(
		newRunCmd(&a),
		newMigrateCmd(&a),
		newRunsCmd(&a),
		newReportCmd(&a),
		newShowCmd(&a),
	)
	return root
}

// Execute builds the command tree and runs it with ctx.
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("execute root command: %w", err)
	}
	return nil
}

func (a *app) openDB() (*bun.DB, error) {
	db, err := database.Open(a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", a.cfg.Database.Type, err)
	}
	return db, nil
}
