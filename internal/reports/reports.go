package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"figures/internal/configuration"
	"figures/internal/models"
	"figures/internal/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	SiteDailyMetricsReport   = "site_daily_metrics"
	CourseDailyMetricsReport = "course_daily_metrics"
	contentTypeCSV           = "text/csv"
	maxListedReports         = 1000
)

var ErrReportNotFound = errors.New("report not found")

var reportName = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-(site|course)_daily_metrics\.csv$`)

// Exporter writes daily metrics snapshots as CSV files to object storage.
type Exporter struct {
	DB      *gorm.DB
	Storage storage.IStorage
}

func New(db *gorm.DB, store storage.IStorage) Exporter {
	return Exporter{DB: db, Storage: store}
}

// Name is the file name of a report, unique per site.
func Name(date models.Date, report string) string {
	return fmt.Sprintf("%s-%s.csv", date, report)
}

func ObjectPath(siteID uint, name string) string {
	return path.Join(configuration.ReportsPrefix, "site-"+strconv.FormatUint(uint64(siteID), 10), name)
}

// Export uploads the site and course daily metrics of a site for date. It
// returns the report names written.
func (e Exporter) Export(ctx context.Context, site models.Site, date models.Date) ([]string, error) {
	var siteRows []models.SiteDailyMetrics
	if err := e.DB.WithContext(ctx).
		Where("site_id = ? AND date_for = ?", site.ID, date).
		Find(&siteRows).Error; err != nil {
		return nil, err
	}

	var courseRows []models.CourseDailyMetrics
	if err := e.DB.WithContext(ctx).
		Where("site_id = ? AND date_for = ?", site.ID, date).
		Order("course_id").
		Find(&courseRows).Error; err != nil {
		return nil, err
	}

	siteCSV, err := siteMetricsCSV(siteRows)
	if err != nil {
		return nil, err
	}
	courseCSV, err := courseMetricsCSV(courseRows)
	if err != nil {
		return nil, err
	}

	written := make([]string, 0, 2)
	for _, report := range []struct {
		name string
		body []byte
	}{
		{Name(date, SiteDailyMetricsReport), siteCSV},
		{Name(date, CourseDailyMetricsReport), courseCSV},
	} {
		key := ObjectPath(site.ID, report.name)
		if err = e.Storage.PutObject(ctx, key, bytes.NewReader(report.body), int64(len(report.body)), contentTypeCSV); err != nil {
			return written, fmt.Errorf("failed to upload %s: %w", key, err)
		}
		zap.L().Debug("Exported report", zap.String("key", key), zap.Int("bytes", len(report.body)))
		written = append(written, report.name)
	}
	return written, nil
}

// List returns the reports of a site, newest first. A date restricts the
// listing to the reports of that day.
func (e Exporter) List(ctx context.Context, siteID uint, date *models.Date) ([]models.ReportObject, error) {
	prefix := ObjectPath(siteID, "") + "/"
	if date != nil {
		prefix += date.String()
	}

	objects, err := e.Storage.ListObjects(ctx, prefix, maxListedReports)
	if err != nil {
		return nil, err
	}

	reports := make([]models.ReportObject, 0, len(objects))
	for _, object := range objects {
		name := path.Base(object.Key)
		if !reportName.MatchString(name) {
			continue
		}
		reports = append(reports, models.ReportObject{Name: name})
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Name > reports[j].Name })
	return reports, nil
}

// Link presigns a download URL for a site report.
func (e Exporter) Link(ctx context.Context, siteID uint, name string) (models.ReportObject, error) {
	if !reportName.MatchString(name) {
		return models.ReportObject{}, ErrReportNotFound
	}

	key := ObjectPath(siteID, name)
	if _, err := e.Storage.StatObject(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return models.ReportObject{}, ErrReportNotFound
		}
		return models.ReportObject{}, err
	}

	url, err := e.Storage.PresignedGetObject(ctx, key)
	if err != nil {
		return models.ReportObject{}, err
	}
	return models.ReportObject{Name: name, URL: url}, nil
}

func siteMetricsCSV(rows []models.SiteDailyMetrics) ([]byte, error) {
	records := [][]string{{
		"site_id", "date_for", "cumulative_active_user_count", "todays_active_user_count",
		"total_user_count", "course_count", "total_enrollment_count",
	}}
	for _, row := range rows {
		records = append(records, []string{
			strconv.FormatUint(uint64(row.SiteID), 10),
			row.DateFor.String(),
			strconv.Itoa(row.CumulativeActiveUserCount),
			strconv.Itoa(row.TodaysActiveUserCount),
			strconv.Itoa(row.TotalUserCount),
			strconv.Itoa(row.CourseCount),
			strconv.Itoa(row.TotalEnrollmentCount),
		})
	}
	return writeCSV(records)
}

func courseMetricsCSV(rows []models.CourseDailyMetrics) ([]byte, error) {
	records := [][]string{{
		"site_id", "course_id", "date_for", "enrollment_count", "active_learners_today",
		"average_progress", "average_days_to_complete", "num_learners_completed",
	}}
	for _, row := range rows {
		progress := ""
		if row.AverageProgress != nil {
			progress = strconv.FormatFloat(*row.AverageProgress, 'f', 2, 64)
		}
		days := ""
		if row.AverageDaysToComplete != nil {
			days = strconv.Itoa(*row.AverageDaysToComplete)
		}
		records = append(records, []string{
			strconv.FormatUint(uint64(row.SiteID), 10),
			row.CourseID,
			row.DateFor.String(),
			strconv.Itoa(row.EnrollmentCount),
			strconv.Itoa(row.ActiveLearnersToday),
			progress,
			days,
			strconv.Itoa(row.NumLearnersCompleted),
		})
	}
	return writeCSV(records)
}

func writeCSV(records [][]string) ([]byte, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return []byte(buf.String()), nil
}
