package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deposit request statuses.
const (
	DepositPending   = "pending"
	DepositConfirmed = "confirmed"
	DepositRejected  = "rejected"
)

// DepositRequest records a user's claimed deposit awaiting administrator
// verification. Confirming credits the wallet exactly once.
type DepositRequest struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	UserID        string     `gorm:"not null;index" json:"user_id"`
	Amount        float64    `gorm:"not null" json:"amount"`
	Currency      string     `gorm:"not null" json:"currency"`
	Network       string     `json:"network,omitempty"`
	WalletAddress string     `json:"wallet_address,omitempty"`
	Status        string     `gorm:"not null;default:'pending';index" json:"status"`
	AdminID       string     `json:"admin_id,omitempty"`
	AdminNote     string     `json:"admin_note,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
}

func (r *DepositRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
