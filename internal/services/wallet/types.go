package wallet

// Direction of a balance adjustment.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// AdjustParams describes one balance mutation. Every component that
// moves funds builds one of these; there is no other path to a balance
// write.
type AdjustParams struct {
	UserID    string
	Symbol    string
	Amount    float64
	Direction Direction

	// Ledger attribution
	EntryType     string
	ReferenceType string
	ReferenceID   string
	TxHash        string
	Note          string

	// ActorID, when set, additionally writes an AdminAction audit row.
	ActorID string
	// ActionType overrides the admin action type derived from Direction.
	ActionType string
}

// AdjustResult reports the balance after a successful mutation.
type AdjustResult struct {
	NewBalance float64 `json:"new_balance"`
}

// ReconcileReport compares the folded ledger against the stored balance.
type ReconcileReport struct {
	UserID     string  `json:"user_id"`
	Symbol     string  `json:"symbol"`
	Balance    float64 `json:"balance"`
	LedgerSum  float64 `json:"ledger_sum"`
	Consistent bool    `json:"consistent"`
}
