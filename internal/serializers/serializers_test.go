package serializers

import (
	"context"
	"testing"
	"time"

	"figures/internal/metrics"
	"figures/internal/models"
	"figures/internal/sites"
	"figures/internal/tests"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSerializer(t *testing.T) (Serializer, *gorm.DB, models.Site) {
	t.Helper()
	db := tests.NewSQLiteDB(t)
	site := tests.NewSite(t, db, "example.com")
	scope := sites.Scope{DB: db, Mode: models.SiteModeStandalone, DefaultSiteID: site.ID}
	return New(db, metrics.New(db, scope), "https://cdn.example.com/profile-images/"), db, site
}

func TestIndexSerializers(t *testing.T) {
	course := models.CourseOverview{ID: "course-v1:edX+Demo+run", DisplayOrg: "edX", DisplayNumber: "Demo"}
	assert.Equal(t, models.CourseIndex{
		ID: course.ID, Name: course.ID, Org: "edX", Number: "Demo",
	}, CourseIndex(course))

	user := models.User{ID: 7, Username: "alice", Profile: &models.UserProfile{Name: "Alice Liddell"}}
	index := UserIndex(user)
	require.NotNil(t, index.Fullname)
	assert.Equal(t, "Alice Liddell", *index.Fullname)

	assert.Nil(t, UserIndex(models.User{ID: 8, Username: "bob"}).Fullname)
	assert.Equal(t, []string{}, LanguageProficiencies(nil))
}

func TestProfileImage(t *testing.T) {
	s := Serializer{ProfileImageURL: "https://cdn.example.com/images"}

	image := s.ProfileImage(models.User{Username: "alice"})
	assert.False(t, image.HasImage)
	assert.Equal(t, "https://cdn.example.com/images/default_500.png", image.ImageURLFull)
	assert.Equal(t, "https://cdn.example.com/images/default_30.png", image.ImageURLSmall)

	uploaded := time.Unix(1700000000, 0).UTC()
	image = s.ProfileImage(models.User{Username: "alice", Profile: &models.UserProfile{ProfileImageAt: &uploaded}})
	assert.True(t, image.HasImage)
	assert.Equal(t, "https://cdn.example.com/images/alice_120.jpg?v=1700000000", image.ImageURLLarge)
}

func TestCourseEnrollments(t *testing.T) {
	ctx := context.Background()
	s, db, _ := newSerializer(t)
	course := tests.NewCourse(t, db, "edX", "Demo", tests.Day(2024, time.January, 1))
	alice := tests.NewUser(t, db, "alice", tests.Day(2024, time.January, 1))
	tests.Enroll(t, db, alice, course.ID, tests.Day(2024, time.February, 1))

	var enrollments []models.CourseEnrollment
	require.NoError(t, db.Preload("User.Profile").Find(&enrollments).Error)

	result, err := s.CourseEnrollments(ctx, enrollments)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "alice", result[0].User.Username)
	assert.Equal(t, course.DisplayName, result[0].Course.DisplayName)
	assert.Equal(t, "audit", result[0].Mode)
}

func TestGeneralCourseData(t *testing.T) {
	ctx := context.Background()
	s, db, site := newSerializer(t)
	course := tests.NewCourse(t, db, "edX", "Demo", tests.Day(2024, time.January, 1))
	other := tests.NewCourse(t, db, "edX", "Other", tests.Day(2024, time.January, 1))
	instructor := tests.NewUser(t, db, "instructor", tests.Day(2024, time.January, 1))
	tests.Create(t, db,
		&models.UserProfile{UserID: instructor.ID, Name: "Ms Instructor"},
		&models.CourseAccessRole{UserID: instructor.ID, CourseID: course.ID, Role: models.CourseRoleInstructor},
		&models.CourseDailyMetrics{SiteID: site.ID, CourseID: course.ID, DateFor: models.NewDate(2024, time.March, 1), EnrollmentCount: 3},
		&models.CourseDailyMetrics{SiteID: site.ID, CourseID: course.ID, DateFor: models.NewDate(2024, time.March, 2), EnrollmentCount: 4},
	)

	result, err := s.GeneralCourseData(ctx, site, []models.CourseOverview{course, other}, models.NewDate(2024, time.March, 5))
	require.NoError(t, err)
	require.Len(t, result, 2)

	require.Len(t, result[0].Staff, 1)
	assert.Equal(t, "instructor", result[0].Staff[0].Username)
	assert.Equal(t, "Ms Instructor", *result[0].Staff[0].Fullname)
	assert.Equal(t, models.CourseRoleInstructor, result[0].Staff[0].Role)
	require.NotNil(t, result[0].Metrics)
	assert.Equal(t, 4, result[0].Metrics.EnrollmentCount)

	assert.Empty(t, result[1].Staff)
	assert.NotNil(t, result[1].Staff)
	assert.Nil(t, result[1].Metrics)
}

func TestLearnerCounts(t *testing.T) {
	ctx := context.Background()
	s, db, site := newSerializer(t)
	course := tests.NewCourse(t, db, "edX", "Demo", tests.Day(2024, time.January, 1))
	joined := tests.Day(2024, time.January, 1)

	done := tests.NewUser(t, db, "done", joined)
	halfway := tests.NewUser(t, db, "halfway", joined)
	idle := tests.NewUser(t, db, "idle", joined)
	instructor := tests.NewUser(t, db, "instructor", joined)
	for _, user := range []models.User{done, halfway, idle, instructor} {
		tests.Enroll(t, db, user, course.ID, joined)
	}

	tests.Create(t, db,
		&models.CourseAccessRole{UserID: instructor.ID, CourseID: course.ID, Role: models.CourseRoleStaff},
		&models.GeneratedCertificate{UserID: done.ID, CourseID: course.ID, Status: CertificateStatusPassing, CreatedDate: joined},
		&models.GeneratedCertificate{UserID: instructor.ID, CourseID: course.ID, Status: CertificateStatusPassing, CreatedDate: joined},
		&models.CourseEnrollmentAllowed{Email: "invited@example.com", CourseID: course.ID},
		&models.CourseEnrollmentAllowed{Email: done.Email, CourseID: course.ID},
		&models.LearnerCourseGradeMetrics{SiteID: site.ID, UserID: done.ID, CourseID: course.ID, DateFor: models.NewDate(2024, time.February, 1),
			SectionsWorked: 4, SectionsPossible: 4, PointsEarned: 9, PointsPossible: 10},
		&models.LearnerCourseGradeMetrics{SiteID: site.ID, UserID: halfway.ID, CourseID: course.ID, DateFor: models.NewDate(2024, time.February, 1),
			SectionsWorked: 2, SectionsPossible: 4, PointsEarned: 5, PointsPossible: 10},
		&models.LearnerCourseGradeMetrics{SiteID: site.ID, UserID: instructor.ID, CourseID: course.ID, DateFor: models.NewDate(2024, time.February, 1),
			SectionsWorked: 4, SectionsPossible: 4, PointsEarned: 10, PointsPossible: 10},
	)

	counts, err := s.LearnerCounts(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.Enrolled)
	assert.Equal(t, int64(1), counts.Passed)
	assert.Equal(t, int64(1), counts.Invited)
	assert.Equal(t, int64(1), counts.Completed)
	assert.Equal(t, int64(1), counts.PartiallyCompleted)
	assert.Equal(t, int64(1), counts.NotStarted)
	require.NotNil(t, counts.AverageScore)
	assert.InDelta(t, 0.7, *counts.AverageScore, 0.0001)
}

func TestLearnerDetails(t *testing.T) {
	ctx := context.Background()
	s, db, site := newSerializer(t)
	course := tests.NewCourse(t, db, "edX", "Demo", tests.Day(2024, time.January, 1))
	alice := tests.NewUser(t, db, "alice", tests.Day(2024, time.January, 1))
	tests.Create(t, db, &models.UserProfile{UserID: alice.ID, Name: "Alice", Country: "UY", Language: "es"})
	enrollment := tests.Enroll(t, db, alice, course.ID, tests.Day(2024, time.January, 3))

	tests.Create(t, db,
		&models.LearnerCourseGradeMetrics{SiteID: site.ID, UserID: alice.ID, CourseID: course.ID, DateFor: models.NewDate(2024, time.January, 20),
			SectionsWorked: 1, SectionsPossible: 4},
		&models.LearnerCourseGradeMetrics{SiteID: site.ID, UserID: alice.ID, CourseID: course.ID, DateFor: models.NewDate(2024, time.February, 10),
			SectionsWorked: 3, SectionsPossible: 4, ProgressDetails: []byte(`{"sections_worked": 3}`)},
		&models.GeneratedCertificate{UserID: alice.ID, CourseID: course.ID, CreatedDate: tests.Day(2024, time.February, 11)},
	)

	var user models.User
	require.NoError(t, db.Preload("Profile").First(&user, alice.ID).Error)

	details, err := s.LearnerDetails(ctx, user, []models.CourseEnrollment{enrollment}, models.NewDate(2024, time.March, 1))
	require.NoError(t, err)
	assert.Equal(t, "Alice", *details.Name)
	assert.Equal(t, "UY", details.Country)
	assert.Equal(t, []string{"es"}, details.LanguageProficiencies)
	assert.False(t, details.ProfileImage.HasImage)

	require.Len(t, details.Courses, 1)
	progress := details.Courses[0].ProgressData
	assert.Equal(t, models.NewDate(2024, time.January, 3), details.Courses[0].DateEnrolled)
	assert.Equal(t, 0.75, progress.CourseProgress)
	require.NotNil(t, progress.CourseCompleted)
	assert.JSONEq(t, `{"sections_worked": 3}`, string(progress.CourseProgressDetails))
	assert.Equal(t, []models.HistoryPoint{
		{Period: "2024/01", Value: 0.25},
		{Period: "2024/02", Value: 0.75},
		{Period: "2024/03", Value: 0.75},
	}, progress.CourseProgressHistory)
}

func TestGeneralUserData(t *testing.T) {
	ctx := context.Background()
	s, db, _ := newSerializer(t)
	course := tests.NewCourse(t, db, "edX", "Demo", tests.Day(2024, time.January, 1))
	alice := tests.NewUser(t, db, "alice", tests.Day(2024, time.January, 1))
	bob := tests.NewUser(t, db, "bob", tests.Day(2024, time.January, 2))
	tests.Enroll(t, db, alice, course.ID, tests.Day(2024, time.January, 3))

	result, err := s.GeneralUserData(ctx, []models.User{alice, bob})
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Len(t, result[0].Courses, 1)
	assert.Equal(t, course.ID, result[0].Courses[0].ID)
	assert.Equal(t, models.NewDate(2024, time.January, 1), result[0].DateJoined)
	assert.Equal(t, []models.CourseOverviewSummary{}, result[1].Courses)
}
