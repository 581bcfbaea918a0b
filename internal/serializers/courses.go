package serializers

import (
	"context"
	"fmt"

	"figures/internal/models"
)

func (s Serializer) coursesByID(ctx context.Context, ids []string) (map[string]models.CourseOverview, error) {
	result := make(map[string]models.CourseOverview, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var courses []models.CourseOverview
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	for _, course := range courses {
		result[course.ID] = course
	}
	return result, nil
}

// CourseEnrollments expects enrollments loaded with User.Profile.
func (s Serializer) CourseEnrollments(ctx context.Context, enrollments []models.CourseEnrollment) ([]models.CourseEnrollmentResponse, error) {
	ids := make([]string, 0, len(enrollments))
	for _, enrollment := range enrollments {
		ids = append(ids, enrollment.CourseID)
	}
	courses, err := s.coursesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]models.CourseEnrollmentResponse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		course, ok := courses[enrollment.CourseID]
		if !ok {
			course = models.CourseOverview{ID: enrollment.CourseID}
		}
		result = append(result, models.CourseEnrollmentResponse{
			ID:       enrollment.ID,
			CourseID: enrollment.CourseID,
			Created:  enrollment.Created,
			IsActive: enrollment.IsActive,
			Mode:     enrollment.Mode,
			User:     UserIndex(enrollment.User),
			Course:   CourseOverviewSummary(course),
		})
	}
	return result, nil
}

func (s Serializer) staffByCourse(ctx context.Context, courseIDs []string) (map[string][]models.CourseStaff, error) {
	result := make(map[string][]models.CourseStaff, len(courseIDs))
	if len(courseIDs) == 0 {
		return result, nil
	}
	var roles []models.CourseAccessRole
	err := s.DB.WithContext(ctx).
		Preload("User.Profile").
		Where("course_id IN ?", courseIDs).
		Order("id").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("load course staff: %w", err)
	}
	for _, role := range roles {
		result[role.CourseID] = append(result[role.CourseID], models.CourseStaff{
			UserID:   role.UserID,
			Username: role.User.Username,
			Fullname: role.User.FullName(),
			Role:     role.Role,
		})
	}
	return result, nil
}

func staffOf(staff map[string][]models.CourseStaff, courseID string) []models.CourseStaff {
	if members, ok := staff[courseID]; ok {
		return members
	}
	return []models.CourseStaff{}
}

func (s Serializer) GeneralCourseData(ctx context.Context, site models.Site, courses []models.CourseOverview, date models.Date) ([]models.GeneralCourseData, error) {
	ids := make([]string, 0, len(courses))
	for _, course := range courses {
		ids = append(ids, course.ID)
	}
	staff, err := s.staffByCourse(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]models.GeneralCourseData, 0, len(courses))
	for _, course := range courses {
		latest, err := s.Metrics.LatestCourseMetrics(ctx, site, course.ID, date)
		if err != nil {
			return nil, fmt.Errorf("latest metrics of %s: %w", course.ID, err)
		}
		result = append(result, models.GeneralCourseData{
			CourseID:   course.ID,
			CourseName: course.Name(),
			CourseCode: course.DisplayNumber,
			Org:        course.DisplayOrg,
			StartDate:  course.Start,
			EndDate:    course.End,
			SelfPaced:  course.SelfPaced,
			Language:   course.Language,
			Staff:      staffOf(staff, course.ID),
			Metrics:    latest,
		})
	}
	return result, nil
}

func (s Serializer) CourseDetails(ctx context.Context, site models.Site, course models.CourseOverview, date models.Date) (models.CourseDetails, error) {
	staff, err := s.staffByCourse(ctx, []string{course.ID})
	if err != nil {
		return models.CourseDetails{}, err
	}
	history, err := s.Metrics.CourseHistory(ctx, site, course.ID, date)
	if err != nil {
		return models.CourseDetails{}, err
	}
	counts, err := s.LearnerCounts(ctx, course.ID)
	if err != nil {
		return models.CourseDetails{}, err
	}

	return models.CourseDetails{
		CourseID:              course.ID,
		CourseName:            course.Name(),
		CourseCode:            course.DisplayNumber,
		Org:                   course.DisplayOrg,
		StartDate:             course.Start,
		EndDate:               course.End,
		SelfPaced:             course.SelfPaced,
		PassingGrade:          course.LowestPassingGrade,
		Language:              course.Language,
		Staff:                 staffOf(staff, course.ID),
		LearnersEnrolled:      history.LearnersEnrolled,
		AverageProgress:       history.AverageProgress,
		AverageDaysToComplete: history.AverageDaysToComplete,
		UsersCompleted:        history.UsersCompleted,
		LearnerCounts:         counts,
	}, nil
}
