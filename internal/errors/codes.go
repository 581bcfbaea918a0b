package apierrors

// HTTP 400 Bad Request.
const (
	ErrBadRequest   = "BAD_REQUEST"
	ErrInvalidDate  = "INVALID_DATE"
	ErrInvalidScope = "INVALID_POPULATE_SCOPE"
	ErrInvalidState = "INVALID_OIDC_STATE"
)

// HTTP 401 / 403.
const (
	ErrUnauthorized                = "UNAUTHORIZED"
	ErrForbidden                   = "FORBIDDEN"
	ErrInvalidCredentials          = "INVALID_CREDENTIALS"
	ErrGenerateAccessTokenFailed   = "GENERATE_ACCESS_TOKEN_FAILED"
	ErrGenerateReadOnlyTokenFailed = "GENERATE_READONLY_TOKEN_FAILED"
)

// HTTP 404 Not Found.
const (
	ErrCourseNotFound   = "COURSE_NOT_FOUND"
	ErrUserNotFound     = "USER_NOT_FOUND"
	ErrSiteNotFound     = "SITE_NOT_FOUND"
	ErrReportNotFound   = "REPORT_NOT_FOUND"
	ErrProviderNotFound = "PROVIDER_NOT_FOUND"
	ErrNoMetricsData    = "NO_METRICS_DATA_AVAILABLE"

	ErrWorkerRunNotFound = "WORKER_RUN_NOT_FOUND"
)

// HTTP 429 Too Many Requests.
const (
	ErrTooManyRequests = "TOO_MANY_REQUESTS"
)

// HTTP 500 / 503.
const (
	ErrInternalServer       = "INTERNAL_SERVER_ERROR"
	ErrPublishFailed        = "PUBLISH_FAILED"
	ErrStorageNotConfigured = "STORAGE_NOT_CONFIGURED"
)
