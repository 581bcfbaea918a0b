package models

// Query parameters are decoded from the URL query string with mapstructure
// and validated with the validate tags.

type PageQueryParams struct {
	Limit  int `mapstructure:"limit"  validate:"omitempty,gte=1,lte=1000"`
	Offset int `mapstructure:"offset" validate:"omitempty,gte=0"`
}

type CourseQueryParams struct {
	Org    string `mapstructure:"org"    validate:"omitempty,max=255"`
	Name   string `mapstructure:"name"   validate:"omitempty,max=255"`
	Number string `mapstructure:"number" validate:"omitempty,max=255"`
	PageQueryParams `mapstructure:",squash"`
}

type UserQueryParams struct {
	Username string `mapstructure:"username"  validate:"omitempty,max=150"`
	Email    string `mapstructure:"email"     validate:"omitempty,max=254"`
	IsActive string `mapstructure:"is_active" validate:"omitempty,oneof=true false"`
	CourseID string `mapstructure:"course_id" validate:"omitempty,max=255"`
	PageQueryParams `mapstructure:",squash"`
}

type EnrollmentQueryParams struct {
	CourseID string `mapstructure:"course_id" validate:"omitempty,max=255"`
	UserID   uint   `mapstructure:"user_id"`
	IsActive string `mapstructure:"is_active" validate:"omitempty,oneof=true false"`
	PageQueryParams `mapstructure:",squash"`
}

// DailyMetricsQueryParams filters daily metrics on an inclusive date range.
type DailyMetricsQueryParams struct {
	DateFrom string `mapstructure:"date_0"    validate:"omitempty,datetime=2006-01-02"`
	DateTo   string `mapstructure:"date_1"    validate:"omitempty,datetime=2006-01-02"`
	CourseID string `mapstructure:"course_id" validate:"omitempty,max=255"`
	PageQueryParams `mapstructure:",squash"`
}

type SiteMetricsQueryParams struct {
	DateFor string `mapstructure:"date_for" validate:"omitempty,datetime=2006-01-02"`
}

type SiteQueryParams struct {
	Domain string `mapstructure:"domain" validate:"omitempty,max=100"`
	Name   string `mapstructure:"name"   validate:"omitempty,max=50"`
	PageQueryParams `mapstructure:",squash"`
}

type PipelineErrorQueryParams struct {
	ErrorType string `mapstructure:"error_type" validate:"omitempty,oneof=UNSPECIFIED GRADES COURSE SITE VALIDATION"`
	CourseID  string `mapstructure:"course_id"  validate:"omitempty,max=255"`
	PageQueryParams `mapstructure:",squash"`
}

type ReportQueryParams struct {
	DateFor string `mapstructure:"date_for" validate:"omitempty,datetime=2006-01-02"`
}

// ActivityQueryParams filters the activity feed. Days bounds the daily counts.
type ActivityQueryParams struct {
	Action     string `mapstructure:"action"      validate:"omitempty,max=64"`
	ObjectType string `mapstructure:"object_type" validate:"omitempty,oneof=operator worker_run populate_task report"`
	WorkerName string `mapstructure:"worker_name" validate:"omitempty,max=64"`
	CourseID   string `mapstructure:"course_id"   validate:"omitempty,max=255"`
	Days       int    `mapstructure:"days"        validate:"omitempty,gte=1,lte=30"`
}

type AdminStatsQueryParams struct {
	Days int `mapstructure:"days" validate:"omitempty,gte=1,lte=365"`
}
