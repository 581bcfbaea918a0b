package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkerRunStatus string

const (
	WorkerRunStatusRunning   WorkerRunStatus = "running"
	WorkerRunStatusCompleted WorkerRunStatus = "completed"
	WorkerRunStatusFailed    WorkerRunStatus = "failed"
)

type WorkerRun struct {
	ID         uuid.UUID       `gorm:"type:varchar(36);primarykey"                     json:"id"`
	WorkerName string          `gorm:"type:varchar(64);not null;index"                 json:"worker_name"`
	Status     WorkerRunStatus `gorm:"type:varchar(16);not null;default:'running'"     json:"status"`
	DateFor    *Date           `                                                       json:"date_for"`
	Processed  int             `gorm:"not null;default:0"                              json:"processed"`
	Failed     int             `gorm:"not null;default:0"                              json:"failed"`
	StartedAt  time.Time       `gorm:"not null"                                        json:"started_at"`
	EndedAt    *time.Time      `                                                       json:"ended_at"`
}

func (WorkerRun) TableName() string { return "figures_workerrun" }

func (r *WorkerRun) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	return nil
}

// WorkerRunQueryParams filters the pipeline run listing.
type WorkerRunQueryParams struct {
	WorkerName string `mapstructure:"worker_name" validate:"omitempty,max=64"`
	Status     string `mapstructure:"status"      validate:"omitempty,oneof=running completed failed"`
	PageQueryParams `mapstructure:",squash"`
}
