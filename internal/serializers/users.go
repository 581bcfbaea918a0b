package serializers

import (
	"context"
	"fmt"

	"figures/internal/models"
)

func profileOf(user models.User) models.UserProfile {
	if user.Profile == nil {
		return models.UserProfile{}
	}
	return *user.Profile
}

// GeneralUserData expects users loaded with Profile.
func (s Serializer) GeneralUserData(ctx context.Context, users []models.User) ([]models.GeneralUserData, error) {
	userIDs := make([]uint, 0, len(users))
	for _, user := range users {
		userIDs = append(userIDs, user.ID)
	}

	var enrollments []models.CourseEnrollment
	if len(userIDs) > 0 {
		err := s.DB.WithContext(ctx).Where("user_id IN ?", userIDs).Order("id").Find(&enrollments).Error
		if err != nil {
			return nil, fmt.Errorf("load enrollments: %w", err)
		}
	}
	courseIDs := make([]string, 0, len(enrollments))
	for _, enrollment := range enrollments {
		courseIDs = append(courseIDs, enrollment.CourseID)
	}
	courses, err := s.coursesByID(ctx, courseIDs)
	if err != nil {
		return nil, err
	}

	coursesOf := make(map[uint][]models.CourseOverviewSummary, len(users))
	seen := make(map[uint]map[string]bool, len(users))
	for _, enrollment := range enrollments {
		course, ok := courses[enrollment.CourseID]
		if !ok {
			continue
		}
		if seen[enrollment.UserID] == nil {
			seen[enrollment.UserID] = make(map[string]bool)
		}
		if seen[enrollment.UserID][course.ID] {
			continue
		}
		seen[enrollment.UserID][course.ID] = true
		coursesOf[enrollment.UserID] = append(coursesOf[enrollment.UserID], CourseOverviewSummary(course))
	}

	result := make([]models.GeneralUserData, 0, len(users))
	for _, user := range users {
		profile := profileOf(user)
		userCourses := coursesOf[user.ID]
		if userCourses == nil {
			userCourses = []models.CourseOverviewSummary{}
		}
		result = append(result, models.GeneralUserData{
			ID:                    user.ID,
			Username:              user.Username,
			Fullname:              user.FullName(),
			Country:               profile.Country,
			IsActive:              user.IsActive,
			YearOfBirth:           profile.YearOfBirth,
			Gender:                profile.Gender,
			DateJoined:            models.DateOf(user.DateJoined),
			LevelOfEducation:      profile.LevelOfEducation,
			LanguageProficiencies: LanguageProficiencies(user.Profile),
			Courses:               userCourses,
		})
	}
	return result, nil
}

// LearnerDetails expects the user loaded with Profile and the enrollments
// already scoped to the site.
func (s Serializer) LearnerDetails(ctx context.Context, user models.User, enrollments []models.CourseEnrollment, date models.Date) (models.LearnerDetails, error) {
	courseIDs := make([]string, 0, len(enrollments))
	for _, enrollment := range enrollments {
		courseIDs = append(courseIDs, enrollment.CourseID)
	}
	courses, err := s.coursesByID(ctx, courseIDs)
	if err != nil {
		return models.LearnerDetails{}, err
	}

	details := make([]models.LearnerCourseDetails, 0, len(enrollments))
	for _, enrollment := range enrollments {
		course, ok := courses[enrollment.CourseID]
		if !ok {
			course = models.CourseOverview{ID: enrollment.CourseID}
		}
		details = append(details, models.LearnerCourseDetails{
			CourseName:   course.Name(),
			CourseCode:   course.DisplayNumber,
			CourseID:     enrollment.CourseID,
			DateEnrolled: models.DateOf(enrollment.Created),
			ProgressData: s.ProgressData(ctx, user, enrollment.CourseID, date),
			EnrollmentID: enrollment.ID,
		})
	}

	profile := profileOf(user)
	return models.LearnerDetails{
		ID:                    user.ID,
		Username:              user.Username,
		Name:                  user.FullName(),
		Email:                 user.Email,
		Country:               profile.Country,
		IsActive:              user.IsActive,
		YearOfBirth:           profile.YearOfBirth,
		LevelOfEducation:      profile.LevelOfEducation,
		Gender:                profile.Gender,
		DateJoined:            user.DateJoined,
		Bio:                   profile.Bio,
		Courses:               details,
		LanguageProficiencies: LanguageProficiencies(user.Profile),
		ProfileImage:          s.ProfileImage(user),
	}, nil
}
