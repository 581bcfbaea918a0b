package services

import (
	"fmt"
	"time"

	"figures/internal/cache"
	"figures/internal/configuration"
	"figures/internal/handlers"
	m "figures/internal/middlewares"
	"figures/internal/metrics"
	"figures/internal/models"
	"figures/internal/serializers"
	"figures/internal/sites"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MetricsService serves the daily metrics rows and the monthly site metrics.
type MetricsService struct {
	DB      *gorm.DB
	Sites   sites.Scope
	Metrics metrics.Metrics
	Cache   cache.ICache
}

func (s MetricsService) CourseDailyMetricsRoutes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.DailyMetricsQueryParams]).
		Get("/", handlers.GetListHandler(s.GetCourseDailyMetrics))
	return r
}

func (s MetricsService) SiteDailyMetricsRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(m.AuthorizeRole(models.RoleAdmin))
	r.With(m.ValidateQuery[models.DailyMetricsQueryParams]).
		Get("/", handlers.GetListHandler(s.GetSiteDailyMetrics))
	return r
}

func (s MetricsService) GeneralSiteMetricsRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(m.AuthorizeRole(models.RoleAdmin))
	r.With(m.ValidateQuery[models.SiteMetricsQueryParams]).
		Get("/", handlers.GetOneWithQueryHandler(s.GetGeneralSiteMetrics))
	return r
}

// dateRange applies the inclusive date_0 / date_1 filters.
func dateRange(query *gorm.DB, params models.DailyMetricsQueryParams) (*gorm.DB, error) {
	from, err := optionalDate(params.DateFrom)
	if err != nil {
		return nil, err
	}
	to, err := optionalDate(params.DateTo)
	if err != nil {
		return nil, err
	}
	if from != nil {
		query = query.Where("date_for >= ?", *from)
	}
	if to != nil {
		query = query.Where("date_for <= ?", *to)
	}
	return query, nil
}

func (s MetricsService) GetCourseDailyMetrics(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.DailyMetricsQueryParams,
) (models.Page[models.CourseDailyMetrics], error) {
	ctx := scope.Context()
	query := s.DB.WithContext(ctx).Model(&models.CourseDailyMetrics{}).Where("site_id = ?", scope.Site.ID)
	query = restrictCourses(ctx, s.DB, query, "course_id", scope.Claims)
	if params.CourseID != "" {
		query = query.Where("course_id = ?", params.CourseID)
	}
	query, err := dateRange(query, params)
	if err != nil {
		return models.Page[models.CourseDailyMetrics]{}, err
	}

	var rows []models.CourseDailyMetrics
	count, limit, offset, err := paginate(query, params.PageQueryParams, "date_for DESC, course_id", &rows)
	if err != nil {
		return models.Page[models.CourseDailyMetrics]{}, err
	}
	return newPage(scope, count, limit, offset, rows), nil
}

func (s MetricsService) GetSiteDailyMetrics(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.DailyMetricsQueryParams,
) (models.Page[models.SiteDailyMetricsResponse], error) {
	query := s.DB.WithContext(scope.Context()).Model(&models.SiteDailyMetrics{}).Where("site_id = ?", scope.Site.ID)
	query, err := dateRange(query, params)
	if err != nil {
		return models.Page[models.SiteDailyMetricsResponse]{}, err
	}

	var rows []models.SiteDailyMetrics
	count, limit, offset, err := paginate(query, params.PageQueryParams, "date_for DESC", &rows)
	if err != nil {
		return models.Page[models.SiteDailyMetricsResponse]{}, err
	}
	return newPage(scope, count, limit, offset, serializers.SiteDailyMetrics(rows, scope.Site)), nil
}

// GetGeneralSiteMetrics is cached per site and date when a cache is configured.
// Cache failures only cost a recomputation.
func (s MetricsService) GetGeneralSiteMetrics(
	logger *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.SiteMetricsQueryParams,
) (models.GeneralSiteMetrics, error) {
	date, err := dateOrToday(params.DateFor)
	if err != nil {
		return models.GeneralSiteMetrics{}, err
	}

	key := fmt.Sprintf(configuration.CacheSiteMetricsKey, scope.Site.ID, date)
	if s.Cache != nil {
		var cached models.GeneralSiteMetrics
		hit, err := s.Cache.GetJSON(key, &cached)
		if err != nil {
			logger.Warn("Failed to read cached site metrics", zap.String("key", key), zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	result, err := s.Metrics.GeneralSiteMetrics(scope.Context(), scope.Site, date)
	if err != nil {
		return models.GeneralSiteMetrics{}, err
	}

	if s.Cache != nil {
		if err = s.Cache.SetJSON(key, result, configuration.CacheSiteMetricsTTL*time.Second); err != nil {
			logger.Warn("Failed to cache site metrics", zap.String("key", key), zap.Error(err))
		}
	}
	return result, nil
}
