package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ledger entry types.
const (
	EntryAdminCredit      = "admin_credit"
	EntryAdminDebit       = "admin_debit"
	EntryDeposit          = "deposit"
	EntryWithdrawalHold   = "withdrawal_hold"
	EntryWithdrawalRefund = "withdrawal_refund"
	EntryRecurringCredit  = "recurring_credit"
	EntryInvestment       = "investment"
	EntryYield            = "yield"
	EntryExchangeOut      = "exchange_out"
	EntryExchangeIn       = "exchange_in"
	EntryExchangeReversal = "exchange_reversal"
)

// LedgerEntry is the immutable audit record of a single balance change.
// Amount is signed: positive for credits, negative for debits. Entries
// are never updated or deleted.
type LedgerEntry struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	UserID        string    `gorm:"not null;index:idx_ledger_user_symbol" json:"user_id"`
	Symbol        string    `gorm:"not null;index:idx_ledger_user_symbol" json:"symbol"`
	Type          string    `gorm:"not null" json:"type"`
	Amount        float64   `gorm:"not null" json:"amount"`
	BalanceBefore float64   `gorm:"not null" json:"balance_before"`
	BalanceAfter  float64   `gorm:"not null" json:"balance_after"`
	ReferenceType string    `json:"reference_type,omitempty"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	TxHash        string    `json:"tx_hash,omitempty"`
	Note          string    `json:"note,omitempty"`
	AdminID       string    `json:"admin_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
