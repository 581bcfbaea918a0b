package reports

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"figures/internal/models"
	"figures/internal/tests"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestExport(t *testing.T) {
	db := tests.NewSQLiteDB(t)
	store := tests.NewMemoryStorage()
	exporter := New(db, store)

	site := tests.NewSite(t, db, "alpha.example.com")
	other := tests.NewSite(t, db, "beta.example.com")
	date := models.NewDate(2024, time.March, 1)

	tests.Create(t, db,
		&models.SiteDailyMetrics{SiteID: site.ID, DateFor: date, TotalUserCount: 12, CourseCount: 2, TotalEnrollmentCount: 30},
		&models.SiteDailyMetrics{SiteID: other.ID, DateFor: date, TotalUserCount: 99},
		&models.CourseDailyMetrics{SiteID: site.ID, CourseID: "course-v1:b+2+r", DateFor: date, EnrollmentCount: 10},
		&models.CourseDailyMetrics{
			SiteID: site.ID, CourseID: "course-v1:a+1+r", DateFor: date, EnrollmentCount: 20,
			AverageProgress: ptr(0.5), AverageDaysToComplete: ptr(12), NumLearnersCompleted: 3,
		},
		&models.CourseDailyMetrics{SiteID: site.ID, CourseID: "course-v1:a+1+r", DateFor: date.AddDays(-1), EnrollmentCount: 19},
	)

	names, err := exporter.Export(context.Background(), site, date)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2024-03-01-site_daily_metrics.csv",
		"2024-03-01-course_daily_metrics.csv",
	}, names)

	siteCSV := readCSV(t, store.Objects["reports/site-1/2024-03-01-site_daily_metrics.csv"])
	require.Len(t, siteCSV, 2)
	assert.Equal(t, []string{"1", "2024-03-01", "0", "0", "12", "2", "30"}, siteCSV[1])

	courseCSV := readCSV(t, store.Objects["reports/site-1/2024-03-01-course_daily_metrics.csv"])
	require.Len(t, courseCSV, 3)
	assert.Equal(t, []string{"1", "course-v1:a+1+r", "2024-03-01", "20", "0", "0.50", "12", "3"}, courseCSV[1])
	assert.Equal(t, []string{"1", "course-v1:b+2+r", "2024-03-01", "10", "0", "", "", "0"}, courseCSV[2])
}

func TestExportUploadFailure(t *testing.T) {
	db := tests.NewSQLiteDB(t)
	store := tests.NewMemoryStorage()
	store.PutErr = errors.New("bucket unavailable")
	site := tests.NewSite(t, db, "alpha.example.com")

	names, err := New(db, store).Export(context.Background(), site, models.NewDate(2024, time.March, 1))
	assert.ErrorContains(t, err, "bucket unavailable")
	assert.Empty(t, names)
}

func TestListAndLink(t *testing.T) {
	store := tests.NewMemoryStorage()
	store.Objects["reports/site-1/2024-03-01-site_daily_metrics.csv"] = []byte("a")
	store.Objects["reports/site-1/2024-03-02-site_daily_metrics.csv"] = []byte("b")
	store.Objects["reports/site-1/2024-03-02-course_daily_metrics.csv"] = []byte("c")
	store.Objects["reports/site-1/notes.txt"] = []byte("ignored")
	store.Objects["reports/site-10/2024-03-02-site_daily_metrics.csv"] = []byte("other site")
	exporter := New(nil, store)
	ctx := context.Background()

	all, err := exporter.List(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []models.ReportObject{
		{Name: "2024-03-02-site_daily_metrics.csv"},
		{Name: "2024-03-02-course_daily_metrics.csv"},
		{Name: "2024-03-01-site_daily_metrics.csv"},
	}, all)

	date := models.NewDate(2024, time.March, 1)
	day, err := exporter.List(ctx, 1, &date)
	require.NoError(t, err)
	assert.Equal(t, []models.ReportObject{{Name: "2024-03-01-site_daily_metrics.csv"}}, day)

	link, err := exporter.Link(ctx, 1, "2024-03-01-site_daily_metrics.csv")
	require.NoError(t, err)
	assert.Equal(t, "https://storage.test/reports/site-1/2024-03-01-site_daily_metrics.csv?signature=test", link.URL)

	_, err = exporter.Link(ctx, 1, "2024-03-05-site_daily_metrics.csv")
	assert.ErrorIs(t, err, ErrReportNotFound)
	_, err = exporter.Link(ctx, 1, "../site-10/2024-03-02-site_daily_metrics.csv")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	require.NotNil(t, data)
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return records
}
