package models

import (
	"math"
	"time"

	"gorm.io/datatypes"
)

type SiteDailyMetrics struct {
	ID                         uint      `gorm:"primarykey"                                   json:"id"`
	SiteID                     uint      `gorm:"not null;uniqueIndex:idx_sdm_site_date"       json:"site"`
	DateFor                    Date      `gorm:"not null;uniqueIndex:idx_sdm_site_date"       json:"date_for"`
	CumulativeActiveUserCount  int       `gorm:"not null;default:0"                           json:"cumulative_active_user_count"`
	TodaysActiveUserCount      int       `gorm:"not null;default:0"                           json:"todays_active_user_count"`
	TotalUserCount             int       `gorm:"not null;default:0"                           json:"total_user_count"`
	CourseCount                int       `gorm:"not null;default:0"                           json:"course_count"`
	TotalEnrollmentCount       int       `gorm:"not null;default:0"                           json:"total_enrollment_count"`
	Created                    time.Time `gorm:"not null;autoCreateTime"                      json:"created"`
	Modified                   time.Time `gorm:"not null;autoUpdateTime"                      json:"modified"`
	Site                       *Site     `gorm:"foreignKey:SiteID"                            json:"-"`
}

func (SiteDailyMetrics) TableName() string { return "figures_sitedailymetrics" }

// SiteDailyMetricsData holds the extracted values for one site and day.
type SiteDailyMetricsData struct {
	CumulativeActiveUserCount int `validate:"gte=0"`
	TodaysActiveUserCount     int `validate:"gte=0"`
	TotalUserCount            int `validate:"gte=0"`
	CourseCount               int `validate:"gte=0"`
	TotalEnrollmentCount      int `validate:"gte=0"`
}

type CourseDailyMetrics struct {
	ID                    uint      `gorm:"primarykey"                                  json:"id"`
	SiteID                uint      `gorm:"not null;uniqueIndex:idx_cdm_site_course_date" json:"site"`
	CourseID              string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_cdm_site_course_date" json:"course_id"`
	DateFor               Date      `gorm:"not null;uniqueIndex:idx_cdm_site_course_date" json:"date_for"`
	EnrollmentCount       int       `gorm:"not null;default:0"                          json:"enrollment_count"`
	ActiveLearnersToday   int       `gorm:"not null;default:0"                          json:"active_learners_today"`
	AverageProgress       *float64  `gorm:"type:decimal(3,2)"                           json:"average_progress"`
	AverageDaysToComplete *int      `                                                   json:"average_days_to_complete"`
	NumLearnersCompleted  int       `gorm:"not null;default:0"                          json:"num_learners_completed"`
	Created               time.Time `gorm:"not null;autoCreateTime"                     json:"created"`
	Modified              time.Time `gorm:"not null;autoUpdateTime"                     json:"modified"`
}

func (CourseDailyMetrics) TableName() string { return "figures_coursedailymetrics" }

// CourseDailyMetricsData holds the extracted values for one course and day.
type CourseDailyMetricsData struct {
	EnrollmentCount       int      `validate:"gte=0"`
	ActiveLearnersToday   int      `validate:"gte=0"`
	AverageProgress       *float64 `validate:"omitnil,gte=0,lte=1"`
	AverageDaysToComplete *int     `validate:"omitnil,gte=0"`
	NumLearnersCompleted  int      `validate:"gte=0"`
}

// LearnerCourseGradeMetrics is a per learner progress snapshot written by the
// grading integration.
type LearnerCourseGradeMetrics struct {
	ID               uint           `gorm:"primarykey"                                    json:"id"`
	SiteID           uint           `gorm:"not null;index"                               json:"site"`
	UserID           uint           `gorm:"not null;uniqueIndex:idx_lcgm_user_course_date" json:"user"`
	CourseID         string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_lcgm_user_course_date" json:"course_id"`
	DateFor          Date           `gorm:"not null;uniqueIndex:idx_lcgm_user_course_date" json:"date_for"`
	PointsPossible   float64        `gorm:"not null;default:0"                            json:"points_possible"`
	PointsEarned     float64        `gorm:"not null;default:0"                            json:"points_earned"`
	SectionsWorked   int            `gorm:"not null;default:0"                            json:"sections_worked"`
	SectionsPossible int            `gorm:"not null;default:0"                            json:"sections_possible"`
	ProgressDetails  datatypes.JSON `                                                     json:"progress_details"`
	Created          time.Time      `gorm:"not null;autoCreateTime"                       json:"created"`
	Modified         time.Time      `gorm:"not null;autoUpdateTime"                       json:"modified"`
}

func (LearnerCourseGradeMetrics) TableName() string { return "figures_learnercoursegrademetrics" }

// ProgressPercent is the share of sections worked, rounded to two decimals.
func (l LearnerCourseGradeMetrics) ProgressPercent() float64 {
	if l.SectionsPossible == 0 {
		return 0
	}
	return Round2(float64(l.SectionsWorked) / float64(l.SectionsPossible))
}

type PipelineErrorType string

const (
	PipelineErrorUnspecified PipelineErrorType = "UNSPECIFIED"
	PipelineErrorGrades      PipelineErrorType = "GRADES"
	PipelineErrorCourse      PipelineErrorType = "COURSE"
	PipelineErrorSite        PipelineErrorType = "SITE"
	PipelineErrorValidation  PipelineErrorType = "VALIDATION"
)

type PipelineError struct {
	ID        uint              `gorm:"primarykey"                 json:"id"`
	ErrorType PipelineErrorType `gorm:"type:varchar(255);not null" json:"error_type"`
	ErrorData datatypes.JSON    `                                  json:"error_data"`
	UserID    *uint             `                                  json:"user"`
	CourseID  *string           `gorm:"type:varchar(255)"          json:"course_id"`
	SiteID    *uint             `                                  json:"site"`
	Created   time.Time         `gorm:"not null;autoCreateTime"    json:"created"`
}

func (PipelineError) TableName() string { return "figures_pipelineerror" }

// FiguresModels is the set of tables owned by Figures.
func FiguresModels() []any {
	return []any{
		&SiteDailyMetrics{},
		&CourseDailyMetrics{},
		&LearnerCourseGradeMetrics{},
		&PipelineError{},
		&WorkerRun{},
		&Operator{},
	}
}

func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}
