package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NetworkConfig carries the per-network withdrawal fee (flat) and
// minimum withdrawal amount consumed by the withdrawal workflow.
type NetworkConfig struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Network       string    `gorm:"not null;uniqueIndex" json:"network"`
	NativeSymbol  string    `json:"native_symbol,omitempty"`
	WithdrawalFee float64   `gorm:"not null;default:0" json:"withdrawal_fee"`
	MinWithdrawal float64   `gorm:"not null;default:0" json:"min_withdrawal"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (n *NetworkConfig) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
