package serializers

import (
	"context"
	"fmt"

	"figures/internal/configuration"
	"figures/internal/metrics"
	"figures/internal/models"
	"figures/internal/pipeline"

	"gorm.io/gorm"
)

// CertificateStatusPassing marks a certificate earned with a passing grade.
const CertificateStatusPassing = "downloadable"

func (s Serializer) staffUserIDs(ctx context.Context, courseID string) *gorm.DB {
	return s.DB.WithContext(ctx).Model(&models.CourseAccessRole{}).
		Select("user_id").
		Where("course_id = ? AND role IN ?", courseID, models.CourseAdminRoles)
}

// latestSnapshots returns the most recent grade snapshot of each user.
func (s Serializer) latestSnapshots(ctx context.Context, courseID string, userIDs []uint) (map[uint]models.LearnerCourseGradeMetrics, error) {
	result := make(map[uint]models.LearnerCourseGradeMetrics, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	var snapshots []models.LearnerCourseGradeMetrics
	err := s.DB.WithContext(ctx).
		Where("course_id = ? AND user_id IN ?", courseID, userIDs).
		Order("user_id, date_for DESC").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	for _, snapshot := range snapshots {
		if _, seen := result[snapshot.UserID]; !seen {
			result[snapshot.UserID] = snapshot
		}
	}
	return result, nil
}

// LearnerCounts are live counts over the learners of a course. Course
// administrators are excluded.
func (s Serializer) LearnerCounts(ctx context.Context, courseID string) (models.CourseLearnerCounts, error) {
	var counts models.CourseLearnerCounts
	db := s.DB.WithContext(ctx)
	staff := s.staffUserIDs(ctx, courseID)

	var learnerIDs []uint
	err := db.Model(&models.CourseEnrollment{}).
		Where("course_id = ?", courseID).
		Where("user_id NOT IN (?)", staff).
		Pluck("user_id", &learnerIDs).Error
	if err != nil {
		return counts, fmt.Errorf("load learners: %w", err)
	}
	counts.Enrolled = int64(len(learnerIDs))

	err = db.Model(&models.GeneratedCertificate{}).
		Where("course_id = ? AND status = ?", courseID, CertificateStatusPassing).
		Where("user_id NOT IN (?)", staff).
		Count(&counts.Passed).Error
	if err != nil {
		return counts, fmt.Errorf("count passed: %w", err)
	}

	enrolledEmails := db.Model(&models.User{}).
		Select("email").
		Where("id IN (?)", db.Model(&models.CourseEnrollment{}).Select("user_id").Where("course_id = ?", courseID))
	err = db.Model(&models.CourseEnrollmentAllowed{}).
		Where("course_id = ?", courseID).
		Where("email NOT IN (?)", enrolledEmails).
		Count(&counts.Invited).Error
	if err != nil {
		return counts, fmt.Errorf("count invited: %w", err)
	}

	snapshots, err := s.latestSnapshots(ctx, courseID, learnerIDs)
	if err != nil {
		return counts, fmt.Errorf("load grade snapshots: %w", err)
	}

	var started int64
	var scoreTotal float64
	var scored int
	for _, snapshot := range snapshots {
		progress := snapshot.ProgressPercent()
		switch {
		case progress >= 1:
			counts.Completed++
			started++
		case progress > 0:
			counts.PartiallyCompleted++
			started++
		}
		if snapshot.PointsPossible > 0 {
			scoreTotal += snapshot.PointsEarned / snapshot.PointsPossible
			scored++
		}
	}
	counts.NotStarted = counts.Enrolled - started
	if scored > 0 {
		average := models.Round2(scoreTotal / float64(scored))
		counts.AverageScore = &average
	}
	return counts, nil
}

// ProgressData describes one learner in one course. A failed grade lookup is
// recorded as a pipeline error and reported as no progress.
func (s Serializer) ProgressData(ctx context.Context, user models.User, courseID string, date models.Date) models.ProgressData {
	data := models.ProgressData{CourseProgressHistory: []models.HistoryPoint{}}
	db := s.DB.WithContext(ctx)

	var certificate models.GeneratedCertificate
	err := db.Where("user_id = ? AND course_id = ?", user.ID, courseID).Order("created_date").First(&certificate).Error
	if err == nil {
		completed := certificate.CreatedDate
		data.CourseCompleted = &completed
	}

	var snapshots []models.LearnerCourseGradeMetrics
	err = db.Where("user_id = ? AND course_id = ? AND date_for <= ?", user.ID, courseID, date).
		Order("date_for").
		Find(&snapshots).Error
	if err != nil {
		pipeline.LogError(ctx, s.DB, pipeline.ErrorRecord{
			Type:     models.PipelineErrorUnspecified,
			UserID:   &user.ID,
			CourseID: &courseID,
			Data: map[string]any{
				"msg":      "Unable to get learner course metrics",
				"username": user.Username,
			},
		}, err)
		return data
	}
	if len(snapshots) == 0 {
		return data
	}

	latest := snapshots[len(snapshots)-1]
	data.CourseProgress = latest.ProgressPercent()
	data.CourseProgressDetails = latest.ProgressDetails

	for _, period := range metrics.MonthPeriods(date, configuration.HistoryMonthsBack) {
		var value float64
		var found bool
		for _, snapshot := range snapshots {
			if snapshot.DateFor.Before(models.DateOf(period.End)) {
				value = snapshot.ProgressPercent()
				found = true
			}
		}
		if found {
			data.CourseProgressHistory = append(data.CourseProgressHistory, models.HistoryPoint{Period: period.Label, Value: value})
		}
	}
	return data
}
