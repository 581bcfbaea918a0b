package services

import (
	"context"
	"errors"
	"strings"

	apierrors "figures/internal/errors"
	h "figures/internal/helpers"
	"figures/internal/models"

	"gorm.io/gorm"
)

var (
	errCourseNotFound = apierrors.NewAPIError(404, apierrors.ErrCourseNotFound)
	errUserNotFound   = apierrors.NewAPIError(404, apierrors.ErrUserNotFound)
	errInvalidDate    = apierrors.NewAPIError(400, apierrors.ErrInvalidDate)
)

// dateOrToday parses an optional YYYY-MM-DD query value.
func dateOrToday(value string) (models.Date, error) {
	if value == "" {
		return models.Today(), nil
	}
	date, err := models.ParseDate(value)
	if err != nil {
		return models.Date{}, errInvalidDate
	}
	return date, nil
}

func optionalDate(value string) (*models.Date, error) {
	if value == "" {
		return nil, nil
	}
	date, err := models.ParseDate(value)
	if err != nil {
		return nil, errInvalidDate
	}
	return &date, nil
}

// administeredCourses selects the courses a host user holds a course role in.
func administeredCourses(ctx context.Context, db *gorm.DB, hostUserID uint) *gorm.DB {
	return db.WithContext(ctx).Model(&models.CourseAccessRole{}).
		Select("course_id").
		Where("user_id = ? AND course_id <> ''", hostUserID)
}

// restrictCourses limits query to the courses the caller may see. Admins see
// every course of the site, staff only the courses they administer.
func restrictCourses(ctx context.Context, db *gorm.DB, query *gorm.DB, column string, claims models.UserClaims) *gorm.DB {
	if claims.IsAdmin() {
		return query
	}
	return query.Where(column+" IN (?)", administeredCourses(ctx, db, claims.HostUserID))
}

func boolFilter(query *gorm.DB, column string, value string) *gorm.DB {
	switch value {
	case "true":
		return query.Where(column+" = ?", true)
	case "false":
		return query.Where(column+" = ?", false)
	default:
		return query
	}
}

func containsFilter(query *gorm.DB, column string, value string) *gorm.DB {
	if value == "" {
		return query
	}
	return query.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(value)+"%")
}

// paginate counts query, then loads the requested page into dest with the
// given associations preloaded.
func paginate[T any](query *gorm.DB, params models.PageQueryParams, order string, dest *[]T, preloads ...string) (int64, int, int, error) {
	limit, offset := h.PageBounds(params)

	var count int64
	if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, 0, 0, err
	}
	page := query.Session(&gorm.Session{})
	for _, association := range preloads {
		page = page.Preload(association)
	}
	if err := page.Order(order).Limit(limit).Offset(offset).Find(dest).Error; err != nil {
		return 0, 0, 0, err
	}
	return count, limit, offset, nil
}

func notFoundAs(err error, apiErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apiErr
	}
	return err
}

func newPage[T any](scope models.RequestScope, count int64, limit int, offset int, results []T) models.Page[T] {
	return h.NewPage(scope.URL, count, limit, offset, results)
}
