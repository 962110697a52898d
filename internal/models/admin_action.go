package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminAction is the audit row written for every administrator-initiated
// mutation.
type AdminAction struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	AdminID      string    `gorm:"not null;index" json:"admin_id"`
	TargetUserID string    `gorm:"index" json:"target_user_id,omitempty"`
	ActionType   string    `gorm:"not null" json:"action_type"`
	Details      JSON      `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (a *AdminAction) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
