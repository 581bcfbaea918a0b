package services

import (
	"strconv"

	"figures/internal/activity"
	"figures/internal/handlers"
	m "figures/internal/middlewares"
	"figures/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const defaultActivityDays = 7

// ActivityService reads back the operator and pipeline activity feed.
type ActivityService struct {
	ActivityLogger activity.IActivityLogger
	DefaultSiteID  uint
}

func (s ActivityService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.ActivityQueryParams]).
		Get("/", handlers.GetListHandler(s.GetActivity))
	r.With(m.ValidateQuery[models.ActivityQueryParams]).
		Get("/daily", handlers.GetOneWithQueryHandler(s.GetDailyActivity))
	return r
}

func (s ActivityService) criteria(scope models.RequestScope, params models.ActivityQueryParams) map[string][]string {
	criteria := map[string][]string{}
	if scope.Site.ID != s.DefaultSiteID {
		criteria["site_id"] = []string{strconv.FormatUint(uint64(scope.Site.ID), 10)}
	}
	add := func(key, value string) {
		if value != "" {
			criteria[key] = []string{value}
		}
	}
	add("action", params.Action)
	add("object_type", params.ObjectType)
	add("worker_name", params.WorkerName)
	add("course_id", params.CourseID)
	return criteria
}

func (s ActivityService) GetActivity(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.ActivityQueryParams,
) (models.Page[map[string]any], error) {
	entries, err := s.ActivityLogger.Search(s.criteria(scope, params))
	if err != nil {
		return models.Page[map[string]any]{}, err
	}
	return models.Page[map[string]any]{Count: int64(len(entries)), Results: entries}, nil
}

func (s ActivityService) GetDailyActivity(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.ActivityQueryParams,
) ([]models.TimeSeriesPoint, error) {
	days := params.Days
	if days == 0 {
		days = defaultActivityDays
	}
	return s.ActivityLogger.CountByDay(s.criteria(scope, params), days)
}
