package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wallet holds the authoritative balance for one (user, asset) pair.
// Rows are created lazily on first credit. The balance must never go
// negative; every change goes through the wallet service choke-point
// and leaves exactly one LedgerEntry behind.
type Wallet struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_wallets_user_symbol" json:"user_id"`
	Symbol    string    `gorm:"not null;uniqueIndex:idx_wallets_user_symbol" json:"symbol"`
	Name      string    `gorm:"not null" json:"name"`
	Balance   float64   `gorm:"not null;default:0" json:"balance"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}
