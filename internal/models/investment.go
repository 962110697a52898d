package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plan payout kinds. Daily plans pay principal * DailyReturnPercent / 100
// each day; subscription plans pay principal * AprRate / 365 / 100.
const (
	PlanKindDaily        = "daily"
	PlanKindSubscription = "subscription"
)

// Investment statuses.
const (
	InvestmentActive    = "active"
	InvestmentCompleted = "completed"
)

// InvestmentPlan describes a product users can put principal into.
type InvestmentPlan struct {
	ID                 string    `gorm:"primaryKey" json:"id"`
	Name               string    `gorm:"not null" json:"name"`
	Kind               string    `gorm:"not null;default:'daily'" json:"kind"`
	DailyReturnPercent float64   `gorm:"not null;default:0" json:"daily_return_percent"`
	AprRate            float64   `gorm:"not null;default:0" json:"apr_rate"`
	MinAmount          float64   `gorm:"not null;default:0" json:"min_amount"`
	DurationDays       int       `gorm:"not null;default:0" json:"duration_days"`
	Currency           string    `gorm:"not null;default:'USDT'" json:"currency"`
	IsActive           bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

func (p *InvestmentPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Investment is a user's active position in a plan.
type Investment struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	UserID      string     `gorm:"not null;index" json:"user_id"`
	PlanID      string     `gorm:"not null;index" json:"plan_id"`
	Amount      float64    `gorm:"not null" json:"amount"`
	Currency    string     `gorm:"not null" json:"currency"`
	Status      string     `gorm:"not null;default:'active';index" json:"status"`
	TotalEarned float64    `gorm:"not null;default:0" json:"total_earned"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

func (i *Investment) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Earning is one payout to one position. The unique (investment, date)
// index is the idempotency key that makes a yield run repeatable within
// a calendar day.
type Earning struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"not null;index" json:"user_id"`
	InvestmentID string    `gorm:"not null;uniqueIndex:idx_earnings_position_day" json:"investment_id"`
	EarnDate     string    `gorm:"not null;uniqueIndex:idx_earnings_position_day" json:"earn_date"`
	Amount       float64   `gorm:"not null" json:"amount"`
	Currency     string    `gorm:"not null" json:"currency"`
	CreatedAt    time.Time `json:"created_at"`
}

func (e *Earning) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
