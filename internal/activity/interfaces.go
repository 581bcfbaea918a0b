package activity

import "figures/internal/models"

// IActivityLogger records operator and pipeline activity and answers
// searches over it.
type IActivityLogger interface {
	Search(searchCriteria map[string][]string) ([]map[string]any, error)
	Send(message models.Activity) error
	CountByDay(searchCriteria map[string][]string, days int) ([]models.TimeSeriesPoint, error)
	Close() error
}
