package sql

import (
	"context"
	"errors"
	"time"

	"figures/internal/configuration"
	apierrors "figures/internal/errors"
	"figures/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func GetWorkerRunByID(ctx context.Context, db *gorm.DB, runID uuid.UUID) (models.WorkerRun, error) {
	var run models.WorkerRun

	if err := db.WithContext(ctx).Where("id = ?", runID).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.WorkerRun{}, apierrors.NewAPIError(404, apierrors.ErrWorkerRunNotFound)
		}
		return models.WorkerRun{}, err
	}

	return run, nil
}

// dayExpression formats a timestamp column as YYYY-MM-DD in the dialect of db.
func dayExpression(db *gorm.DB, column string) string {
	switch db.Dialector.Name() {
	case configuration.DatabasePostgres:
		return "TO_CHAR(" + column + ", 'YYYY-MM-DD')"
	case configuration.DatabaseMySQL:
		return "DATE_FORMAT(" + column + ", '%Y-%m-%d')"
	default:
		return "strftime('%Y-%m-%d', " + column + ")"
	}
}

// GetPipelineErrorsByDay counts pipeline errors per day over the last days.
// A nil siteID counts every site.
func GetPipelineErrorsByDay(ctx context.Context, db *gorm.DB, siteID *uint, days int) ([]models.TimeSeriesPoint, error) {
	result := make([]models.TimeSeriesPoint, 0)

	startDate := time.Now().UTC().AddDate(0, 0, -days)
	day := dayExpression(db, "created")

	query := db.WithContext(ctx).Model(&models.PipelineError{}).
		Select(day+" as date, COUNT(*) as count").
		Where("created >= ?", startDate)
	if siteID != nil {
		query = query.Where("site_id = ?", *siteID)
	}

	err := query.Group(day).Order("date ASC").Scan(&result).Error
	return result, err
}
