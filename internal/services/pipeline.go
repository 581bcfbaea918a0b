package services

import (
	"strconv"

	"figures/internal/activity"
	apierrors "figures/internal/errors"
	"figures/internal/handlers"
	"figures/internal/messaging"
	m "figures/internal/middlewares"
	"figures/internal/models"
	"figures/internal/sites"
	"figures/internal/sql"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errInvalidScope  = apierrors.NewAPIError(400, apierrors.ErrInvalidScope)
	errForbidden     = apierrors.NewAPIError(403, apierrors.ErrForbidden)
	errPublishFailed = apierrors.NewAPIError(500, apierrors.ErrPublishFailed)
)

// PipelineService exposes pipeline errors and runs, and enqueues populate tasks.
type PipelineService struct {
	DB             *gorm.DB
	Sites          sites.Scope
	Publisher      messaging.IPublisher
	ActivityLogger activity.IActivityLogger
}

func (s PipelineService) ErrorRoutes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.PipelineErrorQueryParams]).
		Get("/", handlers.GetListHandler(s.GetPipelineErrors))
	return r
}

func (s PipelineService) RunRoutes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.WorkerRunQueryParams]).
		Get("/", handlers.GetListHandler(s.GetWorkerRuns))
	r.Get("/{id0}", handlers.GetOneHandler(s.GetWorkerRun))
	return r
}

func (s PipelineService) PopulateRoutes() chi.Router {
	r := chi.NewRouter()
	r.With(m.Validate[models.PopulateTask]).
		Post("/", handlers.AcceptHandler(s.Populate))
	return r
}

func (s PipelineService) onDefaultSite(scope models.RequestScope) bool {
	return scope.Site.ID == s.Sites.DefaultSiteID
}

// GetPipelineErrors lists recorded pipeline errors, newest first. Tenant sites
// only see their own rows.
func (s PipelineService) GetPipelineErrors(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.PipelineErrorQueryParams,
) (models.Page[models.PipelineError], error) {
	query := s.DB.WithContext(scope.Context()).Model(&models.PipelineError{})
	if !s.onDefaultSite(scope) {
		query = query.Where("site_id = ?", scope.Site.ID)
	}
	if params.ErrorType != "" {
		query = query.Where("error_type = ?", params.ErrorType)
	}
	if params.CourseID != "" {
		query = query.Where("course_id = ?", params.CourseID)
	}

	var rows []models.PipelineError
	count, limit, offset, err := paginate(query, params.PageQueryParams, "created DESC, id DESC", &rows)
	if err != nil {
		return models.Page[models.PipelineError]{}, err
	}
	return newPage(scope, count, limit, offset, rows), nil
}

func (s PipelineService) GetWorkerRuns(
	_ *zap.Logger,
	scope models.RequestScope,
	_ []string,
	params models.WorkerRunQueryParams,
) (models.Page[models.WorkerRun], error) {
	query := s.DB.WithContext(scope.Context()).Model(&models.WorkerRun{})
	if params.WorkerName != "" {
		query = query.Where("worker_name = ?", params.WorkerName)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var rows []models.WorkerRun
	count, limit, offset, err := paginate(query, params.PageQueryParams, "started_at DESC", &rows)
	if err != nil {
		return models.Page[models.WorkerRun]{}, err
	}
	return newPage(scope, count, limit, offset, rows), nil
}

func (s PipelineService) GetWorkerRun(_ *zap.Logger, scope models.RequestScope, ids []string) (models.WorkerRun, error) {
	runID, err := uuid.Parse(ids[0])
	if err != nil {
		return models.WorkerRun{}, apierrors.NewAPIError(404, apierrors.ErrWorkerRunNotFound)
	}
	return sql.GetWorkerRunByID(scope.Context(), s.DB, runID)
}

// authorizeTask checks a populate task against the caller's site. Only the
// default site may enqueue work for every site or for another site.
func (s PipelineService) authorizeTask(scope models.RequestScope, task models.PopulateTask) error {
	switch task.Scope {
	case models.PopulateScopeAll:
		if !s.onDefaultSite(scope) {
			return errForbidden
		}
	case models.PopulateScopeSite:
		if !s.onDefaultSite(scope) && task.SiteID != scope.Site.ID {
			return errForbidden
		}
	case models.PopulateScopeCourse:
		if s.onDefaultSite(scope) {
			return nil
		}
		inSite, err := s.Sites.CourseInSite(scope.Context(), scope.Site, task.CourseID)
		if err != nil {
			return err
		}
		if !inSite {
			return errCourseNotFound
		}
	default:
		return errInvalidScope
	}
	return nil
}

func (s PipelineService) Populate(
	logger *zap.Logger,
	scope models.RequestScope,
	_ []string,
	task models.PopulateTask,
) (models.PopulateResponse, error) {
	if err := s.authorizeTask(scope, task); err != nil {
		return models.PopulateResponse{}, err
	}

	msg, err := messaging.NewPopulateMessage(task)
	if err != nil {
		return models.PopulateResponse{}, err
	}
	if err = s.Publisher.Publish(msg); err != nil {
		logger.Error("Failed to publish populate task", zap.String("scope", string(task.Scope)), zap.Error(err))
		return models.PopulateResponse{}, errPublishFailed
	}

	fields := map[string]string{
		"action":      activity.PopulateRequested,
		"object_type": activity.ObjectTask,
		"operator_id": scope.Claims.OperatorID.String(),
		"site_id":     strconv.FormatUint(uint64(scope.Site.ID), 10),
	}
	if task.CourseID != "" {
		fields["course_id"] = task.CourseID
	}
	if task.DateFor != nil {
		fields["date_for"] = task.DateFor.String()
	}
	action := models.Activity{
		Message: activity.PopulateRequested,
		Object:  task,
		Filter:  activity.NewLogFilter(fields),
	}
	if logErr := s.ActivityLogger.Send(action); logErr != nil {
		logger.Error("Failed to log populate activity", zap.Error(logErr))
	}

	return models.PopulateResponse{MessageID: msg.UUID, Task: task}, nil
}
