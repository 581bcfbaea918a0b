package pipeline

import (
	"context"
	"errors"
	"fmt"

	"figures/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExtractSiteDailyMetrics aggregates the course metrics rows of date. Course
// metrics for the day must be loaded first.
func (p Pipeline) ExtractSiteDailyMetrics(ctx context.Context, site models.Site, date models.Date) (models.SiteDailyMetricsData, error) {
	var data models.SiteDailyMetricsData

	var courseMetrics []models.CourseDailyMetrics
	err := p.db(ctx).
		Where("site_id = ? AND date_for = ?", site.ID, date).
		Find(&courseMetrics).Error
	if err != nil {
		return data, fmt.Errorf("load course metrics: %w", err)
	}
	for _, row := range courseMetrics {
		data.TodaysActiveUserCount += row.ActiveLearnersToday
		data.TotalEnrollmentCount += row.EnrollmentCount
	}
	data.CourseCount = len(courseMetrics)

	var previous models.SiteDailyMetrics
	err = p.db(ctx).
		Where("site_id = ? AND date_for = ?", site.ID, date.AddDays(-1)).
		First(&previous).Error
	switch {
	case err == nil:
		data.CumulativeActiveUserCount = previous.CumulativeActiveUserCount
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return data, fmt.Errorf("load previous site metrics: %w", err)
	}
	data.CumulativeActiveUserCount += data.TodaysActiveUserCount

	var users int64
	err = p.Sites.UsersQuery(ctx, site).
		Where("auth_user.date_joined < ?", date.End()).
		Count(&users).Error
	if err != nil {
		return data, fmt.Errorf("count site users: %w", err)
	}
	data.TotalUserCount = int(users)

	if err = validateData(data); err != nil {
		return data, err
	}
	return data, nil
}

// LoadSiteDailyMetrics extracts and upserts the site row for date. Loading
// the same day again overwrites it.
func (p Pipeline) LoadSiteDailyMetrics(ctx context.Context, site models.Site, date models.Date) (models.SiteDailyMetrics, bool, error) {
	data, err := p.ExtractSiteDailyMetrics(ctx, site, date)
	if err != nil {
		return models.SiteDailyMetrics{}, false, err
	}

	var existing int64
	err = p.db(ctx).Model(&models.SiteDailyMetrics{}).
		Where("site_id = ? AND date_for = ?", site.ID, date).
		Count(&existing).Error
	if err != nil {
		return models.SiteDailyMetrics{}, false, err
	}

	row := models.SiteDailyMetrics{
		SiteID:                    site.ID,
		DateFor:                   date,
		CumulativeActiveUserCount: data.CumulativeActiveUserCount,
		TodaysActiveUserCount:     data.TodaysActiveUserCount,
		TotalUserCount:            data.TotalUserCount,
		CourseCount:               data.CourseCount,
		TotalEnrollmentCount:      data.TotalEnrollmentCount,
	}
	err = p.db(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "site_id"}, {Name: "date_for"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cumulative_active_user_count",
			"todays_active_user_count",
			"total_user_count",
			"course_count",
			"total_enrollment_count",
			"modified",
		}),
	}).Create(&row).Error
	if err != nil {
		return row, false, fmt.Errorf("upsert site metrics: %w", err)
	}

	var stored models.SiteDailyMetrics
	err = p.db(ctx).Where("site_id = ? AND date_for = ?", site.ID, date).First(&stored).Error
	return stored, existing == 0, err
}
