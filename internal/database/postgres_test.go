package database

import (
	"context"
	"testing"

	"figures/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestMigratePostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("figures"),
		tcpostgres.WithUsername("figures"),
		tcpostgres.WithPassword("figures-secret"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(db, "postgres"))
	version, err := MigrationVersion(db, "postgres")
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	first := models.SiteDailyMetrics{SiteID: 1, DateFor: models.NewDate(2024, 3, 1), CourseCount: 3}
	require.NoError(t, db.Create(&first).Error)

	duplicate := models.SiteDailyMetrics{SiteID: 1, DateFor: models.NewDate(2024, 3, 1)}
	assert.Error(t, db.Create(&duplicate).Error)

	var stored models.SiteDailyMetrics
	require.NoError(t, db.First(&stored, first.ID).Error)
	assert.Equal(t, "2024-03-01", stored.DateFor.String())
}
