// Package metrics answers the month by month questions of the dashboard from
// the stored daily metrics and live host data.
package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"figures/internal/configuration"
	"figures/internal/models"
	"figures/internal/sites"

	"gorm.io/gorm"
)

type Metrics struct {
	DB    *gorm.DB
	Sites sites.Scope
}

func New(db *gorm.DB, scope sites.Scope) Metrics {
	return Metrics{DB: db, Sites: scope}
}

func (m Metrics) db(ctx context.Context) *gorm.DB {
	return m.DB.WithContext(ctx)
}

// Period is a calendar month, cut short at the requested date for the
// current month. End is exclusive.
type Period struct {
	Label string
	Start time.Time
	End   time.Time
}

// MonthPeriods returns the months ending with the month of date, oldest first.
func MonthPeriods(date models.Date, months int) []Period {
	current := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	periods := make([]Period, 0, months)
	for i := months - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)
		if end.After(date.End()) {
			end = date.End()
		}
		periods = append(periods, Period{
			Label: fmt.Sprintf("%04d/%02d", start.Year(), int(start.Month())),
			Start: start,
			End:   end,
		})
	}
	return periods
}

// series evaluates value over the history window. The current month is the
// last point.
func series(date models.Date, value func(Period) (float64, error)) (models.MonthlyMetric, error) {
	var metric models.MonthlyMetric
	for _, period := range MonthPeriods(date, configuration.HistoryMonthsBack) {
		v, err := value(period)
		if err != nil {
			return metric, fmt.Errorf("period %s: %w", period.Label, err)
		}
		metric.History = append(metric.History, models.HistoryPoint{Period: period.Label, Value: v})
	}
	metric.CurrentMonth = metric.History[len(metric.History)-1].Value
	return metric, nil
}

func countOf(query *gorm.DB) (float64, error) {
	var count int64
	err := query.Count(&count).Error
	return float64(count), err
}

// aggregate scans a single nullable aggregate, reading NULL as 0.
func aggregate(query *gorm.DB, expression string) (float64, error) {
	var value sql.NullFloat64
	if err := query.Select(expression).Row().Scan(&value); err != nil {
		return 0, err
	}
	if !value.Valid {
		return 0, nil
	}
	return value.Float64, nil
}

// GeneralSiteMetrics builds the site overview for date.
func (m Metrics) GeneralSiteMetrics(ctx context.Context, site models.Site, date models.Date) (models.GeneralSiteMetrics, error) {
	var result models.GeneralSiteMetrics
	var err error

	if result.MonthlyActiveUsers, err = series(date, func(p Period) (float64, error) {
		query := m.db(ctx).Model(&models.StudentModule{}).
			Where("modified >= ? AND modified < ?", p.Start, p.End).
			Distinct("student_id")
		return countOf(m.Sites.ScopeCourseIDs(ctx, query, "courseware_studentmodule.course_id", site))
	}); err != nil {
		return result, fmt.Errorf("monthly active users: %w", err)
	}

	if result.TotalSiteUsers, err = series(date, func(p Period) (float64, error) {
		return countOf(m.Sites.UsersQuery(ctx, site).Where("auth_user.date_joined < ?", p.End))
	}); err != nil {
		return result, fmt.Errorf("total site users: %w", err)
	}

	if result.TotalSiteCourses, err = series(date, func(p Period) (float64, error) {
		return countOf(m.Sites.CoursesQuery(ctx, site).Where("course_overviews_courseoverview.created < ?", p.End))
	}); err != nil {
		return result, fmt.Errorf("total site courses: %w", err)
	}

	if result.TotalCourseEnrollments, err = series(date, func(p Period) (float64, error) {
		query := m.db(ctx).Model(&models.SiteDailyMetrics{}).
			Where("site_id = ? AND date_for >= ? AND date_for < ?", site.ID, models.DateOf(p.Start), models.DateOf(p.End))
		return aggregate(query, "MAX(total_enrollment_count)")
	}); err != nil {
		return result, fmt.Errorf("total course enrollments: %w", err)
	}

	if result.TotalCourseCompletions, err = series(date, func(p Period) (float64, error) {
		query := m.db(ctx).Model(&models.GeneratedCertificate{}).
			Where("created_date >= ? AND created_date < ?", p.Start, p.End)
		return countOf(m.Sites.ScopeCourseIDs(ctx, query, "certificates_generatedcertificate.course_id", site))
	}); err != nil {
		return result, fmt.Errorf("total course completions: %w", err)
	}

	return result, nil
}

// CourseHistory is the month by month view of one course's daily metrics.
type CourseHistory struct {
	LearnersEnrolled      models.MonthlyMetric
	AverageProgress       models.MonthlyMetric
	AverageDaysToComplete models.MonthlyMetric
	UsersCompleted        models.MonthlyMetric
}

func (m Metrics) CourseHistory(ctx context.Context, site models.Site, courseID string, date models.Date) (CourseHistory, error) {
	var history CourseHistory
	var err error

	inPeriod := func(p Period) *gorm.DB {
		return m.db(ctx).Model(&models.CourseDailyMetrics{}).
			Where("site_id = ? AND course_id = ?", site.ID, courseID).
			Where("date_for >= ? AND date_for < ?", models.DateOf(p.Start), models.DateOf(p.End))
	}

	if history.LearnersEnrolled, err = series(date, func(p Period) (float64, error) {
		return aggregate(inPeriod(p), "MAX(enrollment_count)")
	}); err != nil {
		return history, fmt.Errorf("learners enrolled: %w", err)
	}

	if history.AverageProgress, err = series(date, func(p Period) (float64, error) {
		value, err := aggregate(inPeriod(p), "AVG(average_progress)")
		return models.Round2(value), err
	}); err != nil {
		return history, fmt.Errorf("average progress: %w", err)
	}

	if history.AverageDaysToComplete, err = series(date, func(p Period) (float64, error) {
		value, err := aggregate(inPeriod(p), "AVG(average_days_to_complete)")
		return math.Round(value), err
	}); err != nil {
		return history, fmt.Errorf("average days to complete: %w", err)
	}

	if history.UsersCompleted, err = series(date, func(p Period) (float64, error) {
		return aggregate(inPeriod(p), "MAX(num_learners_completed)")
	}); err != nil {
		return history, fmt.Errorf("users completed: %w", err)
	}

	return history, nil
}

// LatestCourseMetrics returns the most recent course metrics row on or
// before date, or nil when the course has none.
func (m Metrics) LatestCourseMetrics(ctx context.Context, site models.Site, courseID string, date models.Date) (*models.CourseDailyMetrics, error) {
	var rows []models.CourseDailyMetrics
	err := m.db(ctx).
		Where("site_id = ? AND course_id = ? AND date_for <= ?", site.ID, courseID, date).
		Order("date_for DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}
