package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Withdrawal request statuses. A request leaves pending exactly once.
const (
	WithdrawalPending   = "pending"
	WithdrawalCompleted = "completed"
	WithdrawalRejected  = "rejected"
)

// WithdrawalRequest tracks an administrator-settled withdrawal. The full
// Amount is held from the wallet at request time; NetAmount = Amount - Fee
// is informational only.
type WithdrawalRequest struct {
	ID              string     `gorm:"primaryKey" json:"id"`
	UserID          string     `gorm:"not null;index" json:"user_id"`
	Symbol          string     `gorm:"not null" json:"symbol"`
	Network         string     `gorm:"not null" json:"network"`
	Amount          float64    `gorm:"not null" json:"amount"`
	Fee             float64    `gorm:"not null;default:0" json:"fee"`
	NetAmount       float64    `gorm:"not null" json:"net_amount"`
	ToAddress       string     `gorm:"not null" json:"to_address"`
	Status          string     `gorm:"not null;default:'pending';index" json:"status"`
	TxHash          string     `json:"tx_hash,omitempty"`
	AdminID         string     `json:"admin_id,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	RequestedAt     time.Time  `gorm:"autoCreateTime" json:"requested_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
}

func (r *WithdrawalRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
