package services

import (
	"errors"

	"figures/internal/handlers"
	m "figures/internal/middlewares"
	"figures/internal/models"
	"figures/internal/sql"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultStatsDays = 30

type AdminService struct {
	DB            *gorm.DB
	DefaultSiteID uint
}

func (s AdminService) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(m.ValidateQuery[models.AdminStatsQueryParams]).
		Get("/stats", handlers.GetOneWithQueryHandler(s.GetStats))

	return r
}

func (s AdminService) GetStats(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	queryParams models.AdminStatsQueryParams,
) (models.AdminStatsResponse, error) {
	var response models.AdminStatsResponse
	db := s.DB.WithContext(scope.Context())

	var siteID *uint
	if scope.Site.ID != s.DefaultSiteID {
		siteID = &scope.Site.ID
	}

	if err := db.Model(&models.Operator{}).Count(&response.TotalOperators).Error; err != nil {
		return models.AdminStatsResponse{}, err
	}

	errorsQuery := db.Model(&models.PipelineError{})
	if siteID != nil {
		errorsQuery = errorsQuery.Where("site_id = ?", *siteID)
	}
	if err := errorsQuery.Count(&response.TotalPipelineErrors).Error; err != nil {
		return models.AdminStatsResponse{}, err
	}

	if err := db.Model(&models.WorkerRun{}).Count(&response.TotalWorkerRuns).Error; err != nil {
		return models.AdminStatsResponse{}, err
	}
	if err := db.Model(&models.WorkerRun{}).
		Where("status = ?", models.WorkerRunStatusFailed).
		Count(&response.FailedWorkerRuns).Error; err != nil {
		return models.AdminStatsResponse{}, err
	}

	var lastRun models.WorkerRun
	err := db.Order("started_at DESC").First(&lastRun).Error
	switch {
	case err == nil:
		response.LastRun = &lastRun
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return models.AdminStatsResponse{}, err
	}

	days := queryParams.Days
	if days == 0 {
		days = defaultStatsDays
	}
	response.PipelineErrors, err = sql.GetPipelineErrorsByDay(scope.Context(), s.DB, siteID, days)
	if err != nil {
		return models.AdminStatsResponse{}, err
	}

	return response, nil
}
