package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"figures/internal/models"
	"figures/internal/sites"
	"figures/internal/tests"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupStandalone(t *testing.T) (Pipeline, *gorm.DB, models.Site) {
	t.Helper()
	db := tests.NewSQLiteDB(t)
	site := tests.NewSite(t, db, "example.com")
	scope := sites.Scope{DB: db, Mode: models.SiteModeStandalone, DefaultSiteID: site.ID}
	return New(db, scope), db, site
}

func TestExtractSiteDailyMetrics(t *testing.T) {
	ctx := context.Background()
	dateFor := models.NewDate(2018, time.June, 1)

	seed := func(t *testing.T, db *gorm.DB, site models.Site) {
		courseIDs := []string{"course-v1:edX+A+run", "course-v1:edX+B+run", "course-v1:edX+C+run"}
		enrollments := []int{0, 50, 100}
		active := []int{0, 5, 10}
		for i := range courseIDs {
			tests.Create(t, db, &models.CourseDailyMetrics{
				SiteID:              site.ID,
				CourseID:            courseIDs[i],
				DateFor:             dateFor,
				EnrollmentCount:     enrollments[i],
				ActiveLearnersToday: active[i],
			})
		}
	}

	t.Run("without a previous day", func(t *testing.T) {
		p, db, site := setupStandalone(t)
		seed(t, db, site)
		tests.NewUser(t, db, "early", tests.Day(2018, time.May, 1))
		tests.NewUser(t, db, "late", tests.Day(2018, time.June, 2))

		data, err := p.ExtractSiteDailyMetrics(ctx, site, dateFor)
		require.NoError(t, err)
		assert.Equal(t, 15, data.TodaysActiveUserCount)
		assert.Equal(t, 15, data.CumulativeActiveUserCount)
		assert.Equal(t, 150, data.TotalEnrollmentCount)
		assert.Equal(t, 3, data.CourseCount)
		assert.Equal(t, 1, data.TotalUserCount)
	})

	t.Run("adds to the previous cumulative count", func(t *testing.T) {
		p, db, site := setupStandalone(t)
		seed(t, db, site)
		tests.Create(t, db, &models.SiteDailyMetrics{
			SiteID:                    site.ID,
			DateFor:                   dateFor.AddDays(-1),
			CumulativeActiveUserCount: 50,
		})

		data, err := p.ExtractSiteDailyMetrics(ctx, site, dateFor)
		require.NoError(t, err)
		assert.Equal(t, 15, data.TodaysActiveUserCount)
		assert.Equal(t, 65, data.CumulativeActiveUserCount)
	})
}

func TestLoadSiteDailyMetrics(t *testing.T) {
	ctx := context.Background()
	p, db, site := setupStandalone(t)
	dateFor := models.NewDate(2018, time.June, 1)

	tests.Create(t, db, &models.CourseDailyMetrics{
		SiteID: site.ID, CourseID: "course-v1:edX+A+run", DateFor: dateFor, EnrollmentCount: 10, ActiveLearnersToday: 2,
	})

	row, created, err := p.LoadSiteDailyMetrics(ctx, site, dateFor)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 10, row.TotalEnrollmentCount)

	tests.Create(t, db, &models.CourseDailyMetrics{
		SiteID: site.ID, CourseID: "course-v1:edX+B+run", DateFor: dateFor, EnrollmentCount: 5, ActiveLearnersToday: 1,
	})

	row, created, err = p.LoadSiteDailyMetrics(ctx, site, dateFor)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 15, row.TotalEnrollmentCount)
	assert.Equal(t, 2, row.CourseCount)
	assert.Equal(t, dateFor, row.DateFor)

	var count int64
	require.NoError(t, db.Model(&models.SiteDailyMetrics{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMissingCourseDailyMetrics(t *testing.T) {
	ctx := context.Background()
	p, db, site := setupStandalone(t)
	dateFor := models.NewDate(2020, time.March, 10)
	created := tests.Day(2020, time.January, 1)

	courses := []models.CourseOverview{
		tests.NewCourse(t, db, "edX", "A", created),
		tests.NewCourse(t, db, "edX", "B", created),
		tests.NewCourse(t, db, "edX", "C", created),
		tests.NewCourse(t, db, "edX", "D", created),
	}
	tests.NewCourse(t, db, "edX", "Future", tests.Day(2020, time.April, 1))

	for _, course := range courses[:2] {
		tests.Create(t, db, &models.CourseDailyMetrics{SiteID: site.ID, CourseID: course.ID, DateFor: dateFor})
	}
	tests.Create(t, db, &models.CourseDailyMetrics{SiteID: site.ID, CourseID: courses[2].ID, DateFor: dateFor.AddDays(-1)})

	missing, err := p.MissingCourseDailyMetrics(ctx, site, dateFor)
	require.NoError(t, err)
	assert.Equal(t, []string{courses[2].ID, courses[3].ID}, missing)
}

func TestExtractCourseDailyMetrics(t *testing.T) {
	ctx := context.Background()
	p, db, site := setupStandalone(t)
	dateFor := models.NewDate(2021, time.May, 20)
	course := tests.NewCourse(t, db, "edX", "Demo", tests.Day(2021, time.January, 1))

	alice := tests.NewUser(t, db, "alice", tests.Day(2021, time.January, 1))
	bob := tests.NewUser(t, db, "bob", tests.Day(2021, time.January, 1))
	carol := tests.NewUser(t, db, "carol", tests.Day(2021, time.January, 1))
	teacher := tests.NewUser(t, db, "teacher", tests.Day(2021, time.January, 1))

	tests.Enroll(t, db, alice, course.ID, tests.Day(2021, time.May, 1))
	tests.Enroll(t, db, bob, course.ID, tests.Day(2021, time.May, 10))
	tests.Enroll(t, db, carol, course.ID, tests.Day(2021, time.May, 21))
	tests.Enroll(t, db, teacher, course.ID, tests.Day(2021, time.May, 1))
	tests.Create(t, db, &models.CourseAccessRole{UserID: teacher.ID, CourseID: course.ID, Org: "edX", Role: models.CourseRoleStaff})

	onDay := dateFor.Start().Add(3 * time.Hour)
	tests.Create(t, db,
		&models.StudentModule{StudentID: alice.ID, CourseID: course.ID, ModuleID: "m1", Created: onDay, Modified: onDay},
		&models.StudentModule{StudentID: alice.ID, CourseID: course.ID, ModuleID: "m2", Created: onDay, Modified: onDay},
		&models.StudentModule{StudentID: bob.ID, CourseID: course.ID, ModuleID: "m1", Created: onDay, Modified: onDay.AddDate(0, 0, -2)},
		&models.StudentModule{StudentID: teacher.ID, CourseID: course.ID, ModuleID: "m1", Created: onDay, Modified: onDay},
	)

	tests.Create(t, db,
		&models.LearnerCourseGradeMetrics{SiteID: site.ID, UserID: alice.ID, CourseID: course.ID, DateFor: dateFor.AddDays(-5), SectionsWorked: 1, SectionsPossible: 10},
		&models.LearnerCourseGradeMetrics{SiteID: site.ID, UserID: alice.ID, CourseID: course.ID, DateFor: dateFor.AddDays(-1), SectionsWorked: 8, SectionsPossible: 10},
		&models.LearnerCourseGradeMetrics{SiteID: site.ID, UserID: alice.ID, CourseID: course.ID, DateFor: dateFor.AddDays(1), SectionsWorked: 10, SectionsPossible: 10},
		&models.LearnerCourseGradeMetrics{SiteID: site.ID, UserID: bob.ID, CourseID: course.ID, DateFor: dateFor, SectionsWorked: 3, SectionsPossible: 10},
	)

	tests.Create(t, db,
		&models.GeneratedCertificate{UserID: alice.ID, CourseID: course.ID, Status: "downloadable", CreatedDate: tests.Day(2021, time.May, 11)},
		&models.GeneratedCertificate{UserID: bob.ID, CourseID: course.ID, Status: "downloadable", CreatedDate: tests.Day(2021, time.May, 30)},
	)

	data, err := p.ExtractCourseDailyMetrics(ctx, course.ID, dateFor)
	require.NoError(t, err)
	assert.Equal(t, 2, data.EnrollmentCount)
	assert.Equal(t, 1, data.ActiveLearnersToday)
	require.NotNil(t, data.AverageProgress)
	assert.InDelta(t, 0.55, *data.AverageProgress, 0.0001)
	assert.Equal(t, 1, data.NumLearnersCompleted)
	require.NotNil(t, data.AverageDaysToComplete)
	assert.Equal(t, 10, *data.AverageDaysToComplete)
}

func TestExtractCourseDailyMetricsEmptyCourse(t *testing.T) {
	p, db, _ := setupStandalone(t)
	course := tests.NewCourse(t, db, "edX", "Empty", tests.Day(2021, time.January, 1))

	data, err := p.ExtractCourseDailyMetrics(context.Background(), course.ID, models.NewDate(2021, time.May, 20))
	require.NoError(t, err)
	assert.Zero(t, data.EnrollmentCount)
	assert.Nil(t, data.AverageProgress)
	assert.Nil(t, data.AverageDaysToComplete)
}

func TestLoadCourseDailyMetrics(t *testing.T) {
	ctx := context.Background()
	p, db, site := setupStandalone(t)
	dateFor := models.NewDate(2021, time.May, 20)
	course := tests.NewCourse(t, db, "edX", "Demo", tests.Day(2021, time.January, 1))
	alice := tests.NewUser(t, db, "alice", tests.Day(2021, time.January, 1))
	tests.Enroll(t, db, alice, course.ID, tests.Day(2021, time.May, 1))

	row, created, err := p.LoadCourseDailyMetrics(ctx, site, course.ID, dateFor, false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, row.EnrollmentCount)

	bob := tests.NewUser(t, db, "bob", tests.Day(2021, time.January, 1))
	tests.Enroll(t, db, bob, course.ID, tests.Day(2021, time.May, 2))

	t.Run("keeps the existing row", func(t *testing.T) {
		row, created, err := p.LoadCourseDailyMetrics(ctx, site, course.ID, dateFor, false)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, 1, row.EnrollmentCount)
	})

	t.Run("force recomputes", func(t *testing.T) {
		row, created, err := p.LoadCourseDailyMetrics(ctx, site, course.ID, dateFor, true)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, 2, row.EnrollmentCount)

		var count int64
		require.NoError(t, db.Model(&models.CourseDailyMetrics{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestLoadCourseDailyMetricsConcurrentWriter(t *testing.T) {
	ctx := context.Background()
	p, db, site := setupStandalone(t)
	dateFor := models.NewDate(2021, time.May, 20)
	course := tests.NewCourse(t, db, "edX", "Demo", tests.Day(2021, time.January, 1))
	alice := tests.NewUser(t, db, "alice", tests.Day(2021, time.January, 1))
	tests.Enroll(t, db, alice, course.ID, tests.Day(2021, time.May, 1))

	// Another writer stores the same key between the lookup and the insert.
	inserted := false
	err := db.Callback().Create().Before("gorm:create").Register("test:concurrent_writer", func(tx *gorm.DB) {
		if inserted || tx.Statement.Table != (models.CourseDailyMetrics{}).TableName() {
			return
		}
		inserted = true
		competitor := models.CourseDailyMetrics{SiteID: site.ID, CourseID: course.ID, DateFor: dateFor, EnrollmentCount: 7}
		if err := tx.Session(&gorm.Session{NewDB: true}).Create(&competitor).Error; err != nil {
			_ = tx.AddError(err)
		}
	})
	require.NoError(t, err)

	row, created, err := p.LoadCourseDailyMetrics(ctx, site, course.ID, dateFor, false)
	require.NoError(t, err)
	require.True(t, inserted)
	assert.False(t, created)
	assert.Equal(t, 7, row.EnrollmentCount)

	row, created, err = p.LoadCourseDailyMetrics(ctx, site, course.ID, dateFor, true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, row.EnrollmentCount)

	var count int64
	require.NoError(t, db.Model(&models.CourseDailyMetrics{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestValidationError(t *testing.T) {
	progress := 1.5
	err := validateData(models.CourseDailyMetricsData{AverageProgress: &progress})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, models.PipelineErrorValidation, ErrorType(err, models.PipelineErrorCourse))
	assert.Equal(t, models.PipelineErrorCourse, ErrorType(errors.New("boom"), models.PipelineErrorCourse))
}

func TestLogError(t *testing.T) {
	db := tests.NewSQLiteDB(t)
	courseID := "course-v1:edX+Demo+run"
	siteID := uint(3)

	LogError(context.Background(), db, ErrorRecord{
		Type:     models.PipelineErrorCourse,
		SiteID:   &siteID,
		CourseID: &courseID,
		Data:     map[string]any{"date_for": "2021-05-20"},
	}, errors.New("extract failed"))

	var rows []models.PipelineError
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.PipelineErrorCourse, rows[0].ErrorType)
	require.NotNil(t, rows[0].CourseID)
	assert.Equal(t, courseID, *rows[0].CourseID)

	var data map[string]any
	require.NoError(t, json.Unmarshal(rows[0].ErrorData, &data))
	assert.Equal(t, "extract failed", data["message"])
	assert.Equal(t, "2021-05-20", data["date_for"])
}
