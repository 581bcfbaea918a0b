package services

import (
	"figures/internal/handlers"
	h "figures/internal/helpers"
	m "figures/internal/middlewares"
	"figures/internal/models"
	"figures/internal/serializers"
	"figures/internal/sites"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CourseService struct {
	DB         *gorm.DB
	Sites      sites.Scope
	Serializer serializers.Serializer
}

func (s CourseService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/general", func(r chi.Router) {
		r.With(m.ValidateQuery[models.CourseQueryParams]).
			Get("/", handlers.GetListHandler(s.GetGeneralCourseDataList))
		r.Get("/{id0}", handlers.GetOneHandler(s.GetGeneralCourseData))
	})

	r.Route("/detail", func(r chi.Router) {
		r.With(m.ValidateQuery[models.CourseQueryParams]).
			Get("/", handlers.GetListHandler(s.GetCourseDetailsList))
		r.Get("/{id0}", handlers.GetOneHandler(s.GetCourseDetails))
	})

	return r
}

func (s CourseService) IndexRoutes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.CourseQueryParams]).
		Get("/", handlers.GetListHandler(s.GetCourseIndex))
	return r
}

func (s CourseService) EnrollmentRoutes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.EnrollmentQueryParams]).
		Get("/", handlers.GetListHandler(s.GetCourseEnrollments))
	return r
}

// coursesQuery is the site's courses visible to the caller, filtered by params.
func (s CourseService) coursesQuery(scope models.RequestScope, params models.CourseQueryParams) *gorm.DB {
	ctx := scope.Context()
	query := s.Sites.CoursesQuery(ctx, scope.Site)
	query = restrictCourses(ctx, s.DB, query, "course_overviews_courseoverview.id", scope.Claims)
	query = containsFilter(query, "display_name", params.Name)
	if params.Org != "" {
		query = query.Where("org = ?", params.Org)
	}
	if params.Number != "" {
		query = query.Where("display_number_with_default = ?", params.Number)
	}
	return query
}

func (s CourseService) listCourses(scope models.RequestScope, params models.CourseQueryParams) ([]models.CourseOverview, int64, int, int, error) {
	var courses []models.CourseOverview
	count, limit, offset, err := paginate(s.coursesQuery(scope, params), params.PageQueryParams, "id", &courses)
	return courses, count, limit, offset, err
}

func (s CourseService) findCourse(scope models.RequestScope, courseID string) (models.CourseOverview, error) {
	var course models.CourseOverview
	err := s.coursesQuery(scope, models.CourseQueryParams{}).
		Where("course_overviews_courseoverview.id = ?", h.CourseIDParam(courseID)).
		First(&course).Error
	return course, notFoundAs(err, errCourseNotFound)
}

func (s CourseService) GetCourseIndex(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.CourseQueryParams,
) (models.Page[models.CourseIndex], error) {
	courses, count, limit, offset, err := s.listCourses(scope, params)
	if err != nil {
		return models.Page[models.CourseIndex]{}, err
	}

	results := make([]models.CourseIndex, 0, len(courses))
	for _, course := range courses {
		results = append(results, serializers.CourseIndex(course))
	}
	return newPage(scope, count, limit, offset, results), nil
}

func (s CourseService) GetGeneralCourseDataList(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.CourseQueryParams,
) (models.Page[models.GeneralCourseData], error) {
	courses, count, limit, offset, err := s.listCourses(scope, params)
	if err != nil {
		return models.Page[models.GeneralCourseData]{}, err
	}

	results, err := s.Serializer.GeneralCourseData(scope.Context(), scope.Site, courses, models.Today())
	if err != nil {
		return models.Page[models.GeneralCourseData]{}, err
	}
	return newPage(scope, count, limit, offset, results), nil
}

func (s CourseService) GetGeneralCourseData(
	_ *zap.Logger,
	scope models.RequestScope,
	ids []string,
) (models.GeneralCourseData, error) {
	course, err := s.findCourse(scope, ids[0])
	if err != nil {
		return models.GeneralCourseData{}, err
	}

	results, err := s.Serializer.GeneralCourseData(scope.Context(), scope.Site, []models.CourseOverview{course}, models.Today())
	if err != nil {
		return models.GeneralCourseData{}, err
	}
	return results[0], nil
}

func (s CourseService) GetCourseDetailsList(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.CourseQueryParams,
) (models.Page[models.CourseDetails], error) {
	courses, count, limit, offset, err := s.listCourses(scope, params)
	if err != nil {
		return models.Page[models.CourseDetails]{}, err
	}

	today := models.Today()
	results := make([]models.CourseDetails, 0, len(courses))
	for _, course := range courses {
		details, err := s.Serializer.CourseDetails(scope.Context(), scope.Site, course, today)
		if err != nil {
			return models.Page[models.CourseDetails]{}, err
		}
		results = append(results, details)
	}
	return newPage(scope, count, limit, offset, results), nil
}

func (s CourseService) GetCourseDetails(
	_ *zap.Logger,
	scope models.RequestScope,
	ids []string,
) (models.CourseDetails, error) {
	course, err := s.findCourse(scope, ids[0])
	if err != nil {
		return models.CourseDetails{}, err
	}
	return s.Serializer.CourseDetails(scope.Context(), scope.Site, course, models.Today())
}

func (s CourseService) GetCourseEnrollments(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.EnrollmentQueryParams,
) (models.Page[models.CourseEnrollmentResponse], error) {
	ctx := scope.Context()
	query := s.Sites.CourseEnrollmentsQuery(ctx, scope.Site)
	query = restrictCourses(ctx, s.DB, query, "student_courseenrollment.course_id", scope.Claims)
	if params.CourseID != "" {
		query = query.Where("student_courseenrollment.course_id = ?", params.CourseID)
	}
	if params.UserID != 0 {
		query = query.Where("student_courseenrollment.user_id = ?", params.UserID)
	}
	query = boolFilter(query, "student_courseenrollment.is_active", params.IsActive)

	var enrollments []models.CourseEnrollment
	count, limit, offset, err := paginate(query, params.PageQueryParams, "student_courseenrollment.id", &enrollments, "User.Profile")
	if err != nil {
		return models.Page[models.CourseEnrollmentResponse]{}, err
	}

	results, err := s.Serializer.CourseEnrollments(ctx, enrollments)
	if err != nil {
		return models.Page[models.CourseEnrollmentResponse]{}, err
	}
	return newPage(scope, count, limit, offset, results), nil
}
