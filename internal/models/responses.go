package models

import (
	"time"

	"gorm.io/datatypes"
)

// Page is the limit/offset envelope returned by every list endpoint.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// TimeSeriesPoint represents a data point in a time series chart.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type HistoryPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// MonthlyMetric is a metric value for the current month plus the previous months.
type MonthlyMetric struct {
	CurrentMonth float64        `json:"current_month"`
	History      []HistoryPoint `json:"history"`
}

type GeneralSiteMetrics struct {
	MonthlyActiveUsers     MonthlyMetric `json:"monthly_active_users"`
	TotalSiteUsers         MonthlyMetric `json:"total_site_users"`
	TotalSiteCourses       MonthlyMetric `json:"total_site_courses"`
	TotalCourseEnrollments MonthlyMetric `json:"total_course_enrollments"`
	TotalCourseCompletions MonthlyMetric `json:"total_course_completions"`
}

type SiteResponse struct {
	ID     uint   `json:"id"`
	Domain string `json:"domain"`
	Name   string `json:"name"`
}

type CourseIndex struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Org    string `json:"org"`
	Number string `json:"number"`
}

type UserIndex struct {
	ID       uint    `json:"id"`
	Username string  `json:"username"`
	Fullname *string `json:"fullname"`
}

type CourseOverviewSummary struct {
	ID                 string   `json:"id"`
	DisplayName        string   `json:"display_name"`
	Org                string   `json:"org"`
	LowestPassingGrade *float64 `json:"lowest_passing_grade"`
	Language           *string  `json:"language"`
}

type CourseEnrollmentResponse struct {
	ID       uint                  `json:"id"`
	CourseID string                `json:"course_id"`
	Created  time.Time             `json:"created"`
	IsActive bool                  `json:"is_active"`
	Mode     string                `json:"mode"`
	User     UserIndex             `json:"user"`
	Course   CourseOverviewSummary `json:"course"`
}

type SiteDailyMetricsResponse struct {
	SiteDailyMetrics
	Site SiteResponse `json:"site"`
}

type CourseStaff struct {
	UserID   uint    `json:"user_id"`
	Username string  `json:"username"`
	Fullname *string `json:"fullname"`
	Role     string  `json:"role"`
}

type GeneralCourseData struct {
	CourseID   string              `json:"course_id"`
	CourseName string              `json:"course_name"`
	CourseCode string              `json:"course_code"`
	Org        string              `json:"org"`
	StartDate  *time.Time          `json:"start_date"`
	EndDate    *time.Time          `json:"end_date"`
	SelfPaced  bool                `json:"self_paced"`
	Language   *string             `json:"language"`
	Staff      []CourseStaff       `json:"staff"`
	Metrics    *CourseDailyMetrics `json:"metrics"`
}

// CourseLearnerCounts are live counts over enrolled learners, course
// administrators excluded.
type CourseLearnerCounts struct {
	Enrolled           int64    `json:"learners_enrolled"`
	Passed             int64    `json:"learners_passed"`
	Invited            int64    `json:"learners_invited"`
	NotStarted         int64    `json:"learners_not_started"`
	Completed          int64    `json:"learners_completed"`
	PartiallyCompleted int64    `json:"learners_partially_completed"`
	AverageScore       *float64 `json:"average_score"`
}

type CourseDetails struct {
	CourseID              string              `json:"course_id"`
	CourseName            string              `json:"course_name"`
	CourseCode            string              `json:"course_code"`
	Org                   string              `json:"org"`
	StartDate             *time.Time          `json:"start_date"`
	EndDate               *time.Time          `json:"end_date"`
	SelfPaced             bool                `json:"self_paced"`
	PassingGrade          *float64            `json:"passing_grade"`
	Language              *string             `json:"language"`
	Staff                 []CourseStaff       `json:"staff"`
	LearnersEnrolled      MonthlyMetric       `json:"learners_enrolled"`
	AverageProgress       MonthlyMetric       `json:"average_progress"`
	AverageDaysToComplete MonthlyMetric       `json:"average_days_to_complete"`
	UsersCompleted        MonthlyMetric       `json:"users_completed"`
	LearnerCounts         CourseLearnerCounts `json:"learner_counts"`
}

type GeneralUserData struct {
	ID                    uint                    `json:"id"`
	Username              string                  `json:"username"`
	Fullname              *string                 `json:"fullname"`
	Country               string                  `json:"country"`
	IsActive              bool                    `json:"is_active"`
	YearOfBirth           *int                    `json:"year_of_birth"`
	Gender                *string                 `json:"gender"`
	DateJoined            Date                    `json:"date_joined"`
	LevelOfEducation      *string                 `json:"level_of_education"`
	LanguageProficiencies []string                `json:"language_proficiencies"`
	Courses               []CourseOverviewSummary `json:"courses"`
}

type ProgressData struct {
	CourseCompleted       *time.Time     `json:"course_completed"`
	CourseProgress        float64        `json:"course_progress"`
	CourseProgressDetails datatypes.JSON `json:"course_progress_details"`
	CourseProgressHistory []HistoryPoint `json:"course_progress_history"`
}

type LearnerCourseDetails struct {
	CourseName   string       `json:"course_name"`
	CourseCode   string       `json:"course_code"`
	CourseID     string       `json:"course_id"`
	DateEnrolled Date         `json:"date_enrolled"`
	ProgressData ProgressData `json:"progress_data"`
	EnrollmentID uint         `json:"enrollment_id"`
}

type ProfileImage struct {
	ImageURLFull   string `json:"image_url_full"`
	ImageURLLarge  string `json:"image_url_large"`
	ImageURLMedium string `json:"image_url_medium"`
	ImageURLSmall  string `json:"image_url_small"`
	HasImage       bool   `json:"has_image"`
}

type LearnerDetails struct {
	ID                    uint                   `json:"id"`
	Username              string                 `json:"username"`
	Name                  *string                `json:"name"`
	Email                 string                 `json:"email"`
	Country               string                 `json:"country"`
	IsActive              bool                   `json:"is_active"`
	YearOfBirth           *int                   `json:"year_of_birth"`
	LevelOfEducation      *string                `json:"level_of_education"`
	Gender                *string                `json:"gender"`
	DateJoined            time.Time              `json:"date_joined"`
	Bio                   *string                `json:"bio"`
	Courses               []LearnerCourseDetails `json:"courses"`
	LanguageProficiencies []string               `json:"language_proficiencies"`
	ProfileImage          ProfileImage           `json:"profile_image"`
}

type ReportObject struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// AdminStatsResponse is the operations overview of the pipeline.
type AdminStatsResponse struct {
	TotalOperators      int64             `json:"total_operators"`
	TotalPipelineErrors int64             `json:"total_pipeline_errors"`
	TotalWorkerRuns     int64             `json:"total_worker_runs"`
	FailedWorkerRuns    int64             `json:"failed_worker_runs"`
	LastRun             *WorkerRun        `json:"last_run"`
	PipelineErrors      []TimeSeriesPoint `json:"pipeline_errors"`
}
