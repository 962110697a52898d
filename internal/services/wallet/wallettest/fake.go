// Package wallettest provides an in-memory wallet.Service for workflow
// tests.
package wallettest

import (
	"context"
	"strings"
	"sync"

	"custodia/internal/models"
	"custodia/internal/services/wallet"
)

// Fake is an in-memory wallet.Service. Zero value is not usable; use New.
type Fake struct {
	mu       sync.Mutex
	balances map[string]float64
	names    map[string]string
	Entries  []*models.LedgerEntry
	Actions  []*models.AdminAction

	// FailCredit and FailDebit force the next matching adjustment for a
	// symbol to fail with the given error.
	FailCredit map[string]error
	FailDebit  map[string]error
}

func New() *Fake {
	return &Fake{
		balances:   make(map[string]float64),
		names:      make(map[string]string),
		FailCredit: make(map[string]error),
		FailDebit:  make(map[string]error),
	}
}

func key(userID, symbol string) string { return userID + "|" + symbol }

func normalize(symbol string) string { return strings.ToUpper(strings.TrimSpace(symbol)) }

// Seed sets a starting balance without writing a ledger entry.
func (f *Fake) Seed(userID, symbol string, balance float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[key(userID, symbol)] = balance
}

// Balance reads the current balance directly.
func (f *Fake) Balance(userID, symbol string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[key(userID, symbol)]
}

func (f *Fake) GetWallet(ctx context.Context, userID, symbol string) (*models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.balances[key(userID, symbol)]
	if !ok {
		return nil, wallet.ErrWalletNotFound
	}
	return &models.Wallet{UserID: userID, Symbol: symbol, Balance: balance}, nil
}

func (f *Fake) ListWallets(ctx context.Context, userID string) ([]*models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Wallet
	for k, balance := range f.balances {
		parts := strings.SplitN(k, "|", 2)
		if parts[0] == userID {
			out = append(out, &models.Wallet{UserID: userID, Symbol: parts[1], Balance: balance})
		}
	}
	return out, nil
}

func (f *Fake) EnsureWallet(ctx context.Context, userID, symbol, name string) (*models.Wallet, error) {
	symbol = normalize(symbol)
	if symbol == "" {
		return nil, wallet.ErrInvalidSymbol
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(userID, symbol)
	if _, ok := f.balances[k]; !ok {
		f.balances[k] = 0
		f.names[k] = name
	}
	return &models.Wallet{UserID: userID, Symbol: symbol, Balance: f.balances[k]}, nil
}

func (f *Fake) AdjustBalance(ctx context.Context, p wallet.AdjustParams) (*wallet.AdjustResult, error) {
	if p.Amount <= 0 {
		return nil, wallet.ErrInvalidAmount
	}
	p.Symbol = normalize(p.Symbol)
	if p.Symbol == "" {
		return nil, wallet.ErrInvalidSymbol
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.Direction == wallet.DirectionCredit {
		if err, ok := f.FailCredit[p.Symbol]; ok {
			return nil, err
		}
	} else {
		if err, ok := f.FailDebit[p.Symbol]; ok {
			return nil, err
		}
	}

	k := key(p.UserID, p.Symbol)
	balance, ok := f.balances[k]
	if !ok {
		return nil, wallet.ErrWalletNotFound
	}
	delta := p.Amount
	if p.Direction == wallet.DirectionDebit {
		delta = -p.Amount
	}
	if balance+delta < 0 {
		return nil, wallet.ErrInsufficientBalance
	}
	f.balances[k] = balance + delta
	f.Entries = append(f.Entries, &models.LedgerEntry{
		UserID:        p.UserID,
		Symbol:        p.Symbol,
		Type:          p.EntryType,
		Amount:        delta,
		BalanceBefore: balance,
		BalanceAfter:  balance + delta,
		ReferenceType: p.ReferenceType,
		ReferenceID:   p.ReferenceID,
		Note:          p.Note,
		AdminID:       p.ActorID,
	})
	if p.ActorID != "" {
		actionType := p.ActionType
		if actionType == "" {
			actionType = "credit_balance"
			if p.Direction == wallet.DirectionDebit {
				actionType = "debit_balance"
			}
		}
		f.Actions = append(f.Actions, &models.AdminAction{
			AdminID:      p.ActorID,
			TargetUserID: p.UserID,
			ActionType:   actionType,
			Details:      models.JSON{"symbol": p.Symbol, "amount": p.Amount, "note": p.Note},
		})
	}
	return &wallet.AdjustResult{NewBalance: balance + delta}, nil
}

func (f *Fake) History(ctx context.Context, userID, symbol string, limit int) ([]*models.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.LedgerEntry
	for i := len(f.Entries) - 1; i >= 0; i-- {
		e := f.Entries[i]
		if e.UserID == userID && e.Symbol == symbol {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *Fake) Reconcile(ctx context.Context, userID, symbol string) (*wallet.ReconcileReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum float64
	for _, e := range f.Entries {
		if e.UserID == userID && e.Symbol == symbol {
			sum += e.Amount
		}
	}
	balance := f.balances[key(userID, symbol)]
	return &wallet.ReconcileReport{
		UserID:     userID,
		Symbol:     symbol,
		Balance:    balance,
		LedgerSum:  sum,
		Consistent: balance == sum,
	}, nil
}

func (f *Fake) TotalBalances(ctx context.Context) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	totals := make(map[string]float64)
	for k, balance := range f.balances {
		parts := strings.SplitN(k, "|", 2)
		totals[parts[1]] += balance
	}
	return totals, nil
}

func (f *Fake) LogAdminAction(ctx context.Context, adminID, targetUserID, actionType string, details models.JSON) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Actions = append(f.Actions, &models.AdminAction{
		AdminID:      adminID,
		TargetUserID: targetUserID,
		ActionType:   actionType,
		Details:      details,
	})
	return nil
}

func (f *Fake) AdminActions(ctx context.Context, limit int) ([]*models.AdminAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Actions, nil
}
