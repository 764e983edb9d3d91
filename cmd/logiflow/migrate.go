package main

import (
	"github.com/spf13/cobra"

	"github.com/MissoumYoucef/Data-Engineering-for-E-Commerce-Logistics/internal/migrations"
)

func newMigrateCmd(a *app) *cobra.Command {
	var rollback bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or roll back the schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if rollback {
				return migrations.Rollback(cmd.Context(), db, a.log)
			}
			return migrations.RunMigrations(cmd.Context(), db, a.log)
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Roll back the last migration group")
	return cmd
}
