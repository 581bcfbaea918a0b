package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"

	"figures/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// staffUserIDs selects the course administrators, who are not learners.
func (p Pipeline) staffUserIDs(ctx context.Context, courseID string) *gorm.DB {
	return p.db(ctx).Model(&models.CourseAccessRole{}).
		Select("user_id").
		Where("course_id = ? AND role IN ?", courseID, models.CourseAdminRoles)
}

func (p Pipeline) ExtractCourseDailyMetrics(ctx context.Context, courseID string, date models.Date) (models.CourseDailyMetricsData, error) {
	var data models.CourseDailyMetricsData
	staff := p.staffUserIDs(ctx, courseID)

	var enrollments int64
	err := p.db(ctx).Model(&models.CourseEnrollment{}).
		Where("course_id = ? AND created < ?", courseID, date.End()).
		Where("user_id NOT IN (?)", staff).
		Count(&enrollments).Error
	if err != nil {
		return data, fmt.Errorf("count enrollments: %w", err)
	}
	data.EnrollmentCount = int(enrollments)

	var active int64
	err = p.db(ctx).Model(&models.StudentModule{}).
		Where("course_id = ? AND modified >= ? AND modified < ?", courseID, date.Start(), date.End()).
		Where("student_id NOT IN (?)", staff).
		Distinct("student_id").
		Count(&active).Error
	if err != nil {
		return data, fmt.Errorf("count active learners: %w", err)
	}
	data.ActiveLearnersToday = int(active)

	if data.AverageProgress, err = p.averageProgress(ctx, courseID, date); err != nil {
		return data, err
	}

	var certificates []models.GeneratedCertificate
	err = p.db(ctx).
		Where("course_id = ? AND created_date < ?", courseID, date.End()).
		Where("user_id NOT IN (?)", staff).
		Find(&certificates).Error
	if err != nil {
		return data, fmt.Errorf("load certificates: %w", err)
	}
	data.NumLearnersCompleted = len(certificates)

	if data.AverageDaysToComplete, err = p.averageDaysToComplete(ctx, courseID, certificates); err != nil {
		return data, err
	}

	if err = validateData(data); err != nil {
		return data, err
	}
	return data, nil
}

// averageProgress averages each learner's latest grade snapshot on or before
// date. It is nil when no learner has one.
func (p Pipeline) averageProgress(ctx context.Context, courseID string, date models.Date) (*float64, error) {
	var snapshots []models.LearnerCourseGradeMetrics
	err := p.db(ctx).
		Where("course_id = ? AND date_for <= ?", courseID, date).
		Where("user_id NOT IN (?)", p.staffUserIDs(ctx, courseID)).
		Order("user_id, date_for DESC").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("load grade snapshots: %w", err)
	}

	seen := make(map[uint]bool)
	var total float64
	for _, snapshot := range snapshots {
		if seen[snapshot.UserID] {
			continue
		}
		seen[snapshot.UserID] = true
		total += snapshot.ProgressPercent()
	}
	if len(seen) == 0 {
		return nil, nil
	}
	average := models.Round2(total / float64(len(seen)))
	return &average, nil
}

func (p Pipeline) averageDaysToComplete(ctx context.Context, courseID string, certificates []models.GeneratedCertificate) (*int, error) {
	if len(certificates) == 0 {
		return nil, nil
	}

	userIDs := make([]uint, 0, len(certificates))
	for _, certificate := range certificates {
		userIDs = append(userIDs, certificate.UserID)
	}

	var enrollments []models.CourseEnrollment
	err := p.db(ctx).
		Where("course_id = ? AND user_id IN ?", courseID, userIDs).
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("load completed enrollments: %w", err)
	}
	enrolledAt := make(map[uint]models.CourseEnrollment, len(enrollments))
	for _, enrollment := range enrollments {
		enrolledAt[enrollment.UserID] = enrollment
	}

	var days, counted int
	for _, certificate := range certificates {
		enrollment, ok := enrolledAt[certificate.UserID]
		if !ok {
			continue
		}
		days += int(certificate.CreatedDate.Sub(enrollment.Created).Hours() / 24)
		counted++
	}
	if counted == 0 {
		return nil, nil
	}
	average := int(math.Round(float64(days) / float64(counted)))
	return &average, nil
}

// LoadCourseDailyMetrics stores the metrics of a course for date. An existing
// row is returned untouched unless force is set. The flag reports whether a
// row was created. Concurrent loads of the same key collapse onto one row.
func (p Pipeline) LoadCourseDailyMetrics(ctx context.Context, site models.Site, courseID string, date models.Date, force bool) (models.CourseDailyMetrics, bool, error) {
	existing, found, err := p.findCourseDailyMetrics(ctx, site.ID, courseID, date)
	if err != nil {
		return existing, false, err
	}
	if found && !force {
		return existing, false, nil
	}

	data, err := p.ExtractCourseDailyMetrics(ctx, courseID, date)
	if err != nil {
		return existing, false, err
	}

	row := models.CourseDailyMetrics{
		SiteID:                site.ID,
		CourseID:              courseID,
		DateFor:               date,
		EnrollmentCount:       data.EnrollmentCount,
		ActiveLearnersToday:   data.ActiveLearnersToday,
		AverageProgress:       data.AverageProgress,
		AverageDaysToComplete: data.AverageDaysToComplete,
		NumLearnersCompleted:  data.NumLearnersCompleted,
	}
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "site_id"}, {Name: "course_id"}, {Name: "date_for"}},
		DoNothing: !force,
	}
	if force {
		conflict.DoUpdates = clause.AssignmentColumns([]string{
			"enrollment_count",
			"active_learners_today",
			"average_progress",
			"average_days_to_complete",
			"num_learners_completed",
			"modified",
		})
	}
	result := p.db(ctx).Clauses(conflict).Create(&row)
	if result.Error != nil {
		return row, false, fmt.Errorf("upsert course metrics: %w", result.Error)
	}
	created := !found && result.RowsAffected > 0

	stored, found, err := p.findCourseDailyMetrics(ctx, site.ID, courseID, date)
	if err != nil {
		return row, false, err
	}
	if !found {
		return row, false, fmt.Errorf("course metrics for %s on %s vanished after upsert", courseID, date)
	}
	return stored, created, nil
}

func (p Pipeline) findCourseDailyMetrics(ctx context.Context, siteID uint, courseID string, date models.Date) (models.CourseDailyMetrics, bool, error) {
	var row models.CourseDailyMetrics
	err := p.db(ctx).
		Where("site_id = ? AND course_id = ? AND date_for = ?", siteID, courseID, date).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, false, nil
	}
	if err != nil {
		return row, false, fmt.Errorf("load course metrics: %w", err)
	}
	return row, true, nil
}
