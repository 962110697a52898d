package repositories

import (
	"errors"
	"fmt"

	"custodia/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) Create(wallet *models.Wallet) error {
	// Idempotent against the (user_id, symbol) unique index so two
	// concurrent ensure calls cannot both insert.
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "symbol"}},
		DoNothing: true,
	}).Create(wallet)
	if result.Error != nil {
		return fmt.Errorf("failed to create wallet: %w", result.Error)
	}
	return nil
}

func (r *walletRepository) GetByUserSymbol(userID, symbol string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.Where("user_id = ? AND symbol = ?", userID, symbol).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) ListByUser(userID string) ([]*models.Wallet, error) {
	var wallets []*models.Wallet
	if err := r.db.Where("user_id = ?", userID).Order("symbol").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

func (r *walletRepository) ApplyDelta(userID, symbol string, delta float64) (float64, error) {
	result := r.db.Model(&models.Wallet{}).
		Where("user_id = ? AND symbol = ? AND balance + ? >= 0", userID, symbol, delta).
		UpdateColumn("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return 0, fmt.Errorf("failed to apply balance delta: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.Model(&models.Wallet{}).
			Where("user_id = ? AND symbol = ?", userID, symbol).
			Count(&count).Error; err != nil {
			return 0, fmt.Errorf("failed to check wallet existence: %w", err)
		}
		if count == 0 {
			return 0, ErrWalletNotFound
		}
		return 0, ErrInsufficientBalance
	}

	// Re-read inside the same transaction. The row lock held by the
	// UPDATE keeps this stable until commit.
	var wallet models.Wallet
	if err := r.db.Where("user_id = ? AND symbol = ?", userID, symbol).First(&wallet).Error; err != nil {
		return 0, fmt.Errorf("failed to read balance after delta: %w", err)
	}
	return wallet.Balance, nil
}

func (r *walletRepository) CreateLedgerEntry(entry *models.LedgerEntry) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

func (r *walletRepository) LedgerHistory(userID, symbol string, limit int) ([]*models.LedgerEntry, error) {
	var entries []*models.LedgerEntry
	q := r.db.Where("user_id = ? AND symbol = ?", userID, symbol).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	return entries, nil
}

func (r *walletRepository) SumLedgerAmounts(userID, symbol string) (float64, error) {
	var total float64
	err := r.db.Model(&models.LedgerEntry{}).
		Where("user_id = ? AND symbol = ?", userID, symbol).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum ledger amounts: %w", err)
	}
	return total, nil
}

func (r *walletRepository) CreateAdminAction(action *models.AdminAction) error {
	if err := r.db.Create(action).Error; err != nil {
		return fmt.Errorf("failed to create admin action: %w", err)
	}
	return nil
}

func (r *walletRepository) ListAdminActions(limit int) ([]*models.AdminAction, error) {
	var actions []*models.AdminAction
	q := r.db.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&actions).Error; err != nil {
		return nil, fmt.Errorf("failed to list admin actions: %w", err)
	}
	return actions, nil
}

func (r *walletRepository) TotalBalances() (map[string]float64, error) {
	type row struct {
		Symbol string
		Total  float64
	}
	var rows []row
	err := r.db.Model(&models.Wallet{}).
		Select("symbol, COALESCE(SUM(balance), 0) AS total").
		Group("symbol").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get total balances: %w", err)
	}
	totals := make(map[string]float64, len(rows))
	for _, r := range rows {
		totals[r.Symbol] = r.Total
	}
	return totals, nil
}

func (r *walletRepository) ExecuteInTransaction(fn func(WalletRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&walletRepository{db: tx})
	})
}
