package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Operator is a Figures dashboard account. HostUserID links it to a host
// platform user, which scopes course visibility for non admin operators.
type Operator struct {
	ID             uuid.UUID `gorm:"type:varchar(36);primarykey"        json:"id"`
	Email          string    `gorm:"type:varchar(254);not null;unique" json:"email"`
	HashedPassword string    `gorm:"type:varchar(255);not null"        json:"-"`
	Role           Role      `gorm:"type:varchar(16);not null"         json:"role"`
	HostUserID     *uint     `                                         json:"host_user_id"`
	CreatedAt      time.Time `                                         json:"created_at"`
	UpdatedAt      time.Time `                                         json:"updated_at"`
}

func (Operator) TableName() string { return "figures_operator" }

func (o *Operator) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
