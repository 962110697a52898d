// Package wallet implements the balance store choke-point. Every
// balance change in the system routes through AdjustBalance, which
// applies an atomic guarded delta and writes exactly one ledger entry
// (plus an admin action when an actor is present) in one transaction.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"custodia/internal/models"
	"custodia/internal/repositories"

	"github.com/sirupsen/logrus"
)

// Service defines the wallet store and ledger operations.
type Service interface {
	GetWallet(ctx context.Context, userID, symbol string) (*models.Wallet, error)
	ListWallets(ctx context.Context, userID string) ([]*models.Wallet, error)
	EnsureWallet(ctx context.Context, userID, symbol, name string) (*models.Wallet, error)

	AdjustBalance(ctx context.Context, p AdjustParams) (*AdjustResult, error)

	History(ctx context.Context, userID, symbol string, limit int) ([]*models.LedgerEntry, error)
	Reconcile(ctx context.Context, userID, symbol string) (*ReconcileReport, error)
	TotalBalances(ctx context.Context) (map[string]float64, error)

	LogAdminAction(ctx context.Context, adminID, targetUserID, actionType string, details models.JSON) error
	AdminActions(ctx context.Context, limit int) ([]*models.AdminAction, error)
}

// Cache is the optional cache-aside layer for wallet reads.
type Cache interface {
	GetWallet(ctx context.Context, userID, symbol string) (*models.Wallet, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, userID, symbol string) error
}

type service struct {
	repo  repositories.WalletRepository
	cache Cache
	log   *logrus.Entry
}

// NewService creates a new wallet service. The cache is optional.
func NewService(repo repositories.WalletRepository, cache Cache) Service {
	if repo == nil {
		panic("repo is required")
	}
	return &service{
		repo:  repo,
		cache: cache,
		log:   logrus.WithField("component", "wallet"),
	}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (s *service) GetWallet(ctx context.Context, userID, symbol string) (*models.Wallet, error) {
	symbol = normalizeSymbol(symbol)
	if s.cache != nil {
		if wallet, err := s.cache.GetWallet(ctx, userID, symbol); err == nil {
			return wallet, nil
		}
	}

	wallet, err := s.repo.GetByUserSymbol(userID, symbol)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.SetWallet(ctx, wallet)
	}
	return wallet, nil
}

func (s *service) ListWallets(ctx context.Context, userID string) ([]*models.Wallet, error) {
	wallets, err := s.repo.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}

func (s *service) EnsureWallet(ctx context.Context, userID, symbol, name string) (*models.Wallet, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}

	wallet, err := s.repo.GetByUserSymbol(userID, symbol)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, repositories.ErrWalletNotFound) {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	if name == "" {
		name = symbol
	}
	created := &models.Wallet{
		UserID:  userID,
		Symbol:  symbol,
		Name:    name,
		Balance: 0,
	}
	if err := s.repo.Create(created); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	// Re-read: a concurrent ensure may have won the insert.
	wallet, err = s.repo.GetByUserSymbol(userID, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet after create: %w", err)
	}
	return wallet, nil
}

func (s *service) AdjustBalance(ctx context.Context, p AdjustParams) (*AdjustResult, error) {
	p.Symbol = normalizeSymbol(p.Symbol)
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if p.Symbol == "" {
		return nil, ErrInvalidSymbol
	}

	delta := p.Amount
	if p.Direction == DirectionDebit {
		delta = -p.Amount
	}

	entryType := p.EntryType
	if entryType == "" {
		if p.Direction == DirectionCredit {
			entryType = models.EntryAdminCredit
		} else {
			entryType = models.EntryAdminDebit
		}
	}

	var after float64
	err := s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		var err error
		after, err = tx.ApplyDelta(p.UserID, p.Symbol, delta)
		if err != nil {
			return err
		}

		entry := &models.LedgerEntry{
			UserID:        p.UserID,
			Symbol:        p.Symbol,
			Type:          entryType,
			Amount:        delta,
			BalanceBefore: after - delta,
			BalanceAfter:  after,
			ReferenceType: p.ReferenceType,
			ReferenceID:   p.ReferenceID,
			TxHash:        p.TxHash,
			Note:          p.Note,
			AdminID:       p.ActorID,
		}
		if err := tx.CreateLedgerEntry(entry); err != nil {
			return err
		}

		if p.ActorID != "" {
			actionType := p.ActionType
			if actionType == "" {
				if p.Direction == DirectionCredit {
					actionType = "credit_balance"
				} else {
					actionType = "debit_balance"
				}
			}
			action := &models.AdminAction{
				AdminID:      p.ActorID,
				TargetUserID: p.UserID,
				ActionType:   actionType,
				Details: models.JSON{
					"symbol":      p.Symbol,
					"amount":      p.Amount,
					"new_balance": after,
					"note":        p.Note,
				},
			}
			if err := tx.CreateAdminAction(action); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		if errors.Is(err, repositories.ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.InvalidateWallet(ctx, p.UserID, p.Symbol)
	}

	s.log.WithFields(logrus.Fields{
		"user_id": p.UserID,
		"symbol":  p.Symbol,
		"delta":   delta,
		"type":    entryType,
		"balance": after,
	}).Info("balance adjusted")

	return &AdjustResult{NewBalance: after}, nil
}

func (s *service) History(ctx context.Context, userID, symbol string, limit int) ([]*models.LedgerEntry, error) {
	entries, err := s.repo.LedgerHistory(userID, normalizeSymbol(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	return entries, nil
}

func (s *service) Reconcile(ctx context.Context, userID, symbol string) (*ReconcileReport, error) {
	symbol = normalizeSymbol(symbol)
	wallet, err := s.repo.GetByUserSymbol(userID, symbol)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	sum, err := s.repo.SumLedgerAmounts(userID, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fold ledger: %w", err)
	}
	report := &ReconcileReport{
		UserID:     userID,
		Symbol:     symbol,
		Balance:    wallet.Balance,
		LedgerSum:  sum,
		Consistent: wallet.Balance == sum,
	}
	if !report.Consistent {
		s.log.WithFields(logrus.Fields{
			"user_id":    userID,
			"symbol":     symbol,
			"balance":    wallet.Balance,
			"ledger_sum": sum,
		}).Error("ledger does not reproduce wallet balance")
	}
	return report, nil
}

func (s *service) TotalBalances(ctx context.Context) (map[string]float64, error) {
	return s.repo.TotalBalances()
}

func (s *service) LogAdminAction(ctx context.Context, adminID, targetUserID, actionType string, details models.JSON) error {
	if adminID == "" {
		return ErrActorRequired
	}
	return s.repo.CreateAdminAction(&models.AdminAction{
		AdminID:      adminID,
		TargetUserID: targetUserID,
		ActionType:   actionType,
		Details:      details,
	})
}

func (s *service) AdminActions(ctx context.Context, limit int) ([]*models.AdminAction, error) {
	return s.repo.ListAdminActions(limit)
}
