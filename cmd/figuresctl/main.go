// figuresctl runs Figures maintenance commands against the configured database.
package main

import (
	"os"

	"figures/internal/configuration"
	"figures/internal/core"
	"figures/internal/database"
	"figures/internal/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "figuresctl",
	Short:         "Figures maintenance commands",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		config, err := configuration.Load()
		if err != nil {
			return err
		}
		core.NewLogger(config.App.LogLevel)
		loaded = config
		return nil
	},
}

var loaded models.Configuration

func openDB() (*gorm.DB, error) {
	return database.Open(loaded.Database)
}

func main() {
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))

	rootCmd.AddCommand(newPopulateCmd(), newMigrateCmd(), newTokenCmd())
	if err := rootCmd.Execute(); err != nil {
		zap.L().Error("Command failed", zap.Error(err))
		os.Exit(1)
	}
}
