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

// UserService exposes the learners of the current site. Admin only.
type UserService struct {
	DB         *gorm.DB
	Sites      sites.Scope
	Serializer serializers.Serializer
}

func (s UserService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/general", func(r chi.Router) {
		r.With(m.ValidateQuery[models.UserQueryParams]).
			Get("/", handlers.GetListHandler(s.GetGeneralUserDataList))
		r.Get("/{id0}", handlers.GetOneHandler(s.GetGeneralUserData))
	})

	r.Route("/detail", func(r chi.Router) {
		r.With(m.ValidateQuery[models.UserQueryParams]).
			Get("/", handlers.GetListHandler(s.GetLearnerDetailsList))
		r.Get("/{id0}", handlers.GetOneHandler(s.GetLearnerDetails))
	})

	return r
}

func (s UserService) IndexRoutes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.UserQueryParams]).
		Get("/", handlers.GetListHandler(s.GetUserIndex))
	return r
}

func (s UserService) usersQuery(scope models.RequestScope, params models.UserQueryParams) *gorm.DB {
	ctx := scope.Context()
	query := s.Sites.UsersQuery(ctx, scope.Site)
	query = containsFilter(query, "username", params.Username)
	if params.Email != "" {
		query = query.Where("LOWER(email) = LOWER(?)", params.Email)
	}
	query = boolFilter(query, "is_active", params.IsActive)
	if params.CourseID != "" {
		enrolled := s.DB.WithContext(ctx).Model(&models.CourseEnrollment{}).
			Select("user_id").
			Where("course_id = ?", params.CourseID)
		query = query.Where("auth_user.id IN (?)", enrolled)
	}
	return query
}

func (s UserService) listUsers(scope models.RequestScope, params models.UserQueryParams) ([]models.User, int64, int, int, error) {
	var users []models.User
	count, limit, offset, err := paginate(s.usersQuery(scope, params), params.PageQueryParams, "id", &users, "Profile")
	return users, count, limit, offset, err
}

func (s UserService) findUser(scope models.RequestScope, rawID string) (models.User, error) {
	id, ok := h.ParseUintParam(rawID)
	if !ok {
		return models.User{}, errUserNotFound
	}

	var user models.User
	err := s.usersQuery(scope, models.UserQueryParams{}).
		Preload("Profile").
		Where("auth_user.id = ?", id).
		First(&user).Error
	return user, notFoundAs(err, errUserNotFound)
}

func (s UserService) enrollmentsOf(scope models.RequestScope, users []models.User) (map[uint][]models.CourseEnrollment, error) {
	result := make(map[uint][]models.CourseEnrollment, len(users))
	if len(users) == 0 {
		return result, nil
	}
	ids := make([]uint, 0, len(users))
	for _, user := range users {
		ids = append(ids, user.ID)
	}

	var enrollments []models.CourseEnrollment
	err := s.Sites.CourseEnrollmentsQuery(scope.Context(), scope.Site).
		Where("student_courseenrollment.user_id IN ?", ids).
		Order("student_courseenrollment.id").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}
	for _, enrollment := range enrollments {
		result[enrollment.UserID] = append(result[enrollment.UserID], enrollment)
	}
	return result, nil
}

func (s UserService) GetUserIndex(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.UserQueryParams,
) (models.Page[models.UserIndex], error) {
	users, count, limit, offset, err := s.listUsers(scope, params)
	if err != nil {
		return models.Page[models.UserIndex]{}, err
	}

	results := make([]models.UserIndex, 0, len(users))
	for _, user := range users {
		results = append(results, serializers.UserIndex(user))
	}
	return newPage(scope, count, limit, offset, results), nil
}

func (s UserService) GetGeneralUserDataList(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.UserQueryParams,
) (models.Page[models.GeneralUserData], error) {
	users, count, limit, offset, err := s.listUsers(scope, params)
	if err != nil {
		return models.Page[models.GeneralUserData]{}, err
	}

	results, err := s.Serializer.GeneralUserData(scope.Context(), users)
	if err != nil {
		return models.Page[models.GeneralUserData]{}, err
	}
	return newPage(scope, count, limit, offset, results), nil
}

func (s UserService) GetGeneralUserData(
	_ *zap.Logger,
	scope models.RequestScope,
	ids []string,
) (models.GeneralUserData, error) {
	user, err := s.findUser(scope, ids[0])
	if err != nil {
		return models.GeneralUserData{}, err
	}

	results, err := s.Serializer.GeneralUserData(scope.Context(), []models.User{user})
	if err != nil {
		return models.GeneralUserData{}, err
	}
	return results[0], nil
}

func (s UserService) GetLearnerDetailsList(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.UserQueryParams,
) (models.Page[models.LearnerDetails], error) {
	users, count, limit, offset, err := s.listUsers(scope, params)
	if err != nil {
		return models.Page[models.LearnerDetails]{}, err
	}
	enrollments, err := s.enrollmentsOf(scope, users)
	if err != nil {
		return models.Page[models.LearnerDetails]{}, err
	}

	today := models.Today()
	results := make([]models.LearnerDetails, 0, len(users))
	for _, user := range users {
		details, err := s.Serializer.LearnerDetails(scope.Context(), user, enrollments[user.ID], today)
		if err != nil {
			return models.Page[models.LearnerDetails]{}, err
		}
		results = append(results, details)
	}
	return newPage(scope, count, limit, offset, results), nil
}

func (s UserService) GetLearnerDetails(
	_ *zap.Logger,
	scope models.RequestScope,
	ids []string,
) (models.LearnerDetails, error) {
	user, err := s.findUser(scope, ids[0])
	if err != nil {
		return models.LearnerDetails{}, err
	}
	enrollments, err := s.enrollmentsOf(scope, []models.User{user})
	if err != nil {
		return models.LearnerDetails{}, err
	}
	return s.Serializer.LearnerDetails(scope.Context(), user, enrollments[user.ID], models.Today())
}
