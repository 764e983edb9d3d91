package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// Migrations collects every schema step. Each file registers itself from init
// and is named <timestamp>_<comment>.go as bun expects.
var Migrations = migrate.NewMigrations()

// RunMigrations runs all pending migrations.
func RunMigrations(ctx context.Context, db *bun.DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		log.Info("no new migrations to run")
		return nil
	}

	log.Info("migrated", zap.String("group", group.String()))
	return nil
}

// Rollback reverts the last applied migration group.
func Rollback(ctx context.Context, db *bun.DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Rollback(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		log.Info("no groups to roll back")
		return nil
	}

	log.Info("rolled back", zap.String("group", group.String()))
	return nil
}

func execAll(ctx context.Context, db *bun.DB, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
