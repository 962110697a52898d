package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recurring rule frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// RecurringRule is an administrator-defined schedule for automatic
// periodic wallet credits. NextExecutionAt only ever advances forward,
// by whole periods measured from the execution instant.
type RecurringRule struct {
	ID              string     `gorm:"primaryKey" json:"id"`
	UserID          string     `gorm:"not null;index" json:"user_id"`
	Symbol          string     `gorm:"not null" json:"symbol"`
	Amount          float64    `gorm:"not null" json:"amount"`
	Frequency       string     `gorm:"not null" json:"frequency"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	NextExecutionAt time.Time  `gorm:"not null;index" json:"next_execution_at"`
	LastExecutedAt  *time.Time `json:"last_executed_at,omitempty"`
	IsActive        bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (r *RecurringRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
