package repositories

import "custodia/internal/models"

// WalletRepository defines the database operations behind the wallet
// store and its audit trail. ApplyDelta is the only way a balance
// changes; it is an atomic conditional increment guarded by a
// non-negativity predicate so concurrent mutations cannot lose updates
// or overdraw.
type WalletRepository interface {
	// Wallet rows
	Create(wallet *models.Wallet) error
	GetByUserSymbol(userID, symbol string) (*models.Wallet, error)
	ListByUser(userID string) ([]*models.Wallet, error)

	// Balance mutation. Returns the balance after the delta was applied.
	// Fails with ErrWalletNotFound or ErrInsufficientBalance; on failure
	// nothing is written.
	ApplyDelta(userID, symbol string, delta float64) (float64, error)

	// Audit trail
	CreateLedgerEntry(entry *models.LedgerEntry) error
	LedgerHistory(userID, symbol string, limit int) ([]*models.LedgerEntry, error)
	SumLedgerAmounts(userID, symbol string) (float64, error)
	CreateAdminAction(action *models.AdminAction) error
	ListAdminActions(limit int) ([]*models.AdminAction, error)

	// Reporting
	TotalBalances() (map[string]float64, error)

	// ExecuteInTransaction runs fn against a repository bound to a single
	// database transaction.
	ExecuteInTransaction(fn func(WalletRepository) error) error
}
