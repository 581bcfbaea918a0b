package tests

import (
	"path/filepath"
	"testing"
	"time"

	"figures/internal/database"
	"figures/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewSQLiteDB opens a throwaway SQLite database holding the host tables and
// the migrated Figures tables.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	config := models.DatabaseConfiguration{
		Type: "sqlite",
		Name: filepath.Join(t.TempDir(), "figures.db"),
	}

	db, err := database.Open(config)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.HostModels()...))
	require.NoError(t, database.Migrate(db, config.Type))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Create inserts every record and fails the test on error.
func Create(t *testing.T, db *gorm.DB, records ...any) {
	t.Helper()
	for _, record := range records {
		require.NoError(t, db.Create(record).Error)
	}
}

func NewSite(t *testing.T, db *gorm.DB, domain string) models.Site {
	t.Helper()
	site := models.Site{Domain: domain, Name: domain}
	Create(t, db, &site)
	return site
}

func NewUser(t *testing.T, db *gorm.DB, username string, joined time.Time) models.User {
	t.Helper()
	user := models.User{
		Username:   username,
		Email:      username + "@example.com",
		IsActive:   true,
		DateJoined: joined.UTC(),
	}
	Create(t, db, &user)
	return user
}

func NewCourse(t *testing.T, db *gorm.DB, org string, number string, created time.Time) models.CourseOverview {
	t.Helper()
	course := models.CourseOverview{
		ID:            "course-v1:" + org + "+" + number + "+run",
		DisplayName:   org + " " + number,
		DisplayNumber: number,
		DisplayOrg:    org,
		Org:           org,
		Created:       created.UTC(),
		Modified:      created.UTC(),
	}
	Create(t, db, &course)
	return course
}

func Enroll(t *testing.T, db *gorm.DB, user models.User, courseID string, created time.Time) models.CourseEnrollment {
	t.Helper()
	enrollment := models.CourseEnrollment{
		UserID:   user.ID,
		CourseID: courseID,
		Created:  created.UTC(),
		IsActive: true,
		Mode:     "audit",
	}
	Create(t, db, &enrollment)
	return enrollment
}

// NewOrganization creates an organization linked to the given sites.
func NewOrganization(t *testing.T, db *gorm.DB, shortName string, sites ...models.Site) models.Organization {
	t.Helper()
	org := models.Organization{Name: shortName, ShortName: shortName, Active: true}
	Create(t, db, &org)
	for _, site := range sites {
		Create(t, db, &models.OrganizationSite{OrganizationID: org.ID, SiteID: site.ID})
	}
	return org
}

func MapCourse(t *testing.T, db *gorm.DB, org models.Organization, courseID string) {
	t.Helper()
	Create(t, db, &models.OrganizationCourse{OrganizationID: org.ID, CourseID: courseID, Active: true})
}

func MapUser(t *testing.T, db *gorm.DB, org models.Organization, user models.User) {
	t.Helper()
	Create(t, db, &models.UserOrganizationMapping{OrganizationID: org.ID, UserID: user.ID, IsActive: true})
}

// Day returns midday UTC of the given date, a safe timestamp inside that day.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}
