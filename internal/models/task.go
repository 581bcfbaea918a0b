package models

type PopulateScope string

const (
	PopulateScopeCourse PopulateScope = "course"
	PopulateScopeSite   PopulateScope = "site"
	PopulateScopeAll    PopulateScope = "all"
)

// PopulateTask is the payload of a populate_metrics message.
type PopulateTask struct {
	Scope       PopulateScope `json:"scope"                validate:"required,oneof=course site all"`
	SiteID      uint          `json:"site_id,omitempty"    validate:"required_if=Scope site"`
	CourseID    string        `json:"course_id,omitempty"  validate:"required_if=Scope course,max=255"`
	DateFor     *Date         `json:"date_for,omitempty"`
	ForceUpdate bool          `json:"force_update"`
}

type PopulateResponse struct {
	MessageID string       `json:"message_id"`
	Task      PopulateTask `json:"task"`
}
