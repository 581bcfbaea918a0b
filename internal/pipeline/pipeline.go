// Package pipeline extracts daily course and site metrics from host data and
// loads them into the Figures tables.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"figures/internal/models"
	"figures/internal/sites"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError wraps extracted values that failed validation.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid metrics: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

func validateData(data any) error {
	if err := validate.Struct(data); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

type Pipeline struct {
	DB    *gorm.DB
	Sites sites.Scope
}

func New(db *gorm.DB, scope sites.Scope) Pipeline {
	return Pipeline{DB: db, Sites: scope}
}

func (p Pipeline) db(ctx context.Context) *gorm.DB {
	return p.DB.WithContext(ctx)
}

// MissingCourseDailyMetrics returns the ids of site courses that existed on
// date but have no course metrics row for it.
func (p Pipeline) MissingCourseDailyMetrics(ctx context.Context, site models.Site, date models.Date) ([]string, error) {
	metered := p.db(ctx).Model(&models.CourseDailyMetrics{}).
		Select("course_id").
		Where("site_id = ? AND date_for = ?", site.ID, date)

	var ids []string
	err := p.Sites.CoursesQuery(ctx, site).
		Where("course_overviews_courseoverview.created < ?", date.End()).
		Where("course_overviews_courseoverview.id NOT IN (?)", metered).
		Order("course_overviews_courseoverview.id").
		Pluck("course_overviews_courseoverview.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("missing course metrics for site %d: %w", site.ID, err)
	}
	return ids, nil
}
