package services

import (
	"errors"

	apierrors "figures/internal/errors"
	"figures/internal/handlers"
	m "figures/internal/middlewares"
	"figures/internal/models"
	"figures/internal/reports"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var (
	errReportNotFound       = apierrors.NewAPIError(404, apierrors.ErrReportNotFound)
	errStorageNotConfigured = apierrors.NewAPIError(503, apierrors.ErrStorageNotConfigured)
)

// ReportService lists exported CSV snapshots and hands out download links.
type ReportService struct {
	Exporter reports.Exporter
}

func (s ReportService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.ReportQueryParams]).
		Get("/", handlers.GetListHandler(s.GetReportList))
	r.Get("/{id0}", handlers.GetOneHandler(s.GetReport))
	return r
}

func (s ReportService) GetReportList(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.ReportQueryParams,
) (models.Page[models.ReportObject], error) {
	if s.Exporter.Storage == nil {
		return models.Page[models.ReportObject]{}, errStorageNotConfigured
	}
	date, err := optionalDate(params.DateFor)
	if err != nil {
		return models.Page[models.ReportObject]{}, err
	}

	objects, err := s.Exporter.List(scope.Context(), scope.Site.ID, date)
	if err != nil {
		return models.Page[models.ReportObject]{}, err
	}
	return models.Page[models.ReportObject]{Count: int64(len(objects)), Results: objects}, nil
}

func (s ReportService) GetReport(_ *zap.Logger, scope models.RequestScope, ids []string) (models.ReportObject, error) {
	if s.Exporter.Storage == nil {
		return models.ReportObject{}, errStorageNotConfigured
	}

	report, err := s.Exporter.Link(scope.Context(), scope.Site.ID, ids[0])
	if errors.Is(err, reports.ErrReportNotFound) {
		return models.ReportObject{}, errReportNotFound
	}
	return report, err
}
