package database

import (
	"path/filepath"
	"testing"

	"figures/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialector(t *testing.T) {
	t.Run("postgres", func(t *testing.T) {
		dialector, err := Dialector(models.DatabaseConfiguration{
			Type: "postgres", Host: "db", User: "figures", Password: "secret", Name: "figures", Port: 5432,
		})
		require.NoError(t, err)
		assert.Equal(t, "postgres", dialector.Name())
	})

	t.Run("mysql", func(t *testing.T) {
		dialector, err := Dialector(models.DatabaseConfiguration{
			Type: "mysql", Host: "db", User: "figures", Password: "secret", Name: "edxapp", Port: 3306,
		})
		require.NoError(t, err)
		assert.Equal(t, "mysql", dialector.Name())
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := Dialector(models.DatabaseConfiguration{Type: "oracle"})
		assert.Error(t, err)
	})
}

func TestMigrateSQLite(t *testing.T) {
	config := models.DatabaseConfiguration{
		Type: "sqlite",
		Name: filepath.Join(t.TempDir(), "figures.db"),
	}

	db, err := Open(config)
	require.NoError(t, err)

	require.NoError(t, Migrate(db, config.Type))
	// Running twice is a no-op.
	require.NoError(t, Migrate(db, config.Type))

	version, err := MigrationVersion(db, config.Type)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	for _, table := range []string{
		"figures_sitedailymetrics",
		"figures_coursedailymetrics",
		"figures_learnercoursegrademetrics",
		"figures_pipelineerror",
		"figures_workerrun",
		"figures_operator",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	sdm := models.SiteDailyMetrics{
		SiteID:                1,
		DateFor:               models.NewDate(2024, 3, 1),
		TodaysActiveUserCount: 15,
		CourseCount:           3,
	}
	require.NoError(t, db.Create(&sdm).Error)

	var stored models.SiteDailyMetrics
	require.NoError(t, db.First(&stored, sdm.ID).Error)
	assert.Equal(t, "2024-03-01", stored.DateFor.String())
	assert.Equal(t, 15, stored.TodaysActiveUserCount)

	duplicate := models.SiteDailyMetrics{SiteID: 1, DateFor: models.NewDate(2024, 3, 1)}
	assert.Error(t, db.Create(&duplicate).Error)
}
