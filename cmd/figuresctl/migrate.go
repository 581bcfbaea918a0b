package main

import (
	"figures/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Figures migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			if !status {
				if err = database.Migrate(db, loaded.Database.Type); err != nil {
					return err
				}
			}

			version, err := database.MigrationVersion(db, loaded.Database.Type)
			if err != nil {
				return err
			}
			zap.L().Info("Migration version", zap.Int64("version", version), zap.Bool("applied", !status))
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "Only print the current migration version")
	return cmd
}
