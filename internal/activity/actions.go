package activity

import (
	"strconv"
	"time"

	"figures/internal/models"
)

const (
	OperatorLoggedIn   = "OPERATOR_LOGGED_IN"
	HostUserLoggedIn   = "HOST_USER_LOGGED_IN"
	PopulateRequested  = "POPULATE_REQUESTED"
	PipelineRunStarted = "PIPELINE_RUN_STARTED"
	PipelineRunDone    = "PIPELINE_RUN_COMPLETED"
	PipelineRunFailed  = "PIPELINE_RUN_FAILED"
	ReportExported     = "REPORT_EXPORTED"
)

const (
	ObjectOperator  = "operator"
	ObjectHostUser  = "host_user"
	ObjectWorkerRun = "worker_run"
	ObjectTask      = "populate_task"
	ObjectReport    = "report"
)

// SearchableFields are the activity fields accepted as search criteria.
var SearchableFields = []string{
	"action", "object_type", "operator_id", "site_id", "course_id", "worker_name", "date_for",
}

// objectTypesWithPayload may carry their object in the activity entry.
var objectTypesWithPayload = map[string]bool{
	ObjectWorkerRun: true,
	ObjectTask:      true,
	ObjectReport:    true,
}

// NewLogFilter stamps the fields with the current time in nanoseconds.
func NewLogFilter(fields map[string]string) models.LogFilter {
	return models.LogFilter{
		Fields:    fields,
		Timestamp: strconv.FormatInt(time.Now().UnixNano(), 10),
	}
}
