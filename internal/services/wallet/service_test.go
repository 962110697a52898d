package wallet

import (
	"context"
	"testing"

	"custodia/internal/models"
	"custodia/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWalletRepo is an in-memory WalletRepository.
type fakeWalletRepo struct {
	wallets map[string]*models.Wallet
	entries []*models.LedgerEntry
	actions []*models.AdminAction
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[string]*models.Wallet)}
}

func key(userID, symbol string) string { return userID + "|" + symbol }

func (f *fakeWalletRepo) Create(w *models.Wallet) error {
	k := key(w.UserID, w.Symbol)
	if _, ok := f.wallets[k]; ok {
		return nil // ON CONFLICT DO NOTHING
	}
	cp := *w
	f.wallets[k] = &cp
	return nil
}

func (f *fakeWalletRepo) GetByUserSymbol(userID, symbol string) (*models.Wallet, error) {
	w, ok := f.wallets[key(userID, symbol)]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWalletRepo) ListByUser(userID string) ([]*models.Wallet, error) {
	var out []*models.Wallet
	for _, w := range f.wallets {
		if w.UserID == userID {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeWalletRepo) ApplyDelta(userID, symbol string, delta float64) (float64, error) {
	w, ok := f.wallets[key(userID, symbol)]
	if !ok {
		return 0, repositories.ErrWalletNotFound
	}
	if w.Balance+delta < 0 {
		return 0, repositories.ErrInsufficientBalance
	}
	w.Balance += delta
	return w.Balance, nil
}

func (f *fakeWalletRepo) CreateLedgerEntry(e *models.LedgerEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeWalletRepo) LedgerHistory(userID, symbol string, limit int) ([]*models.LedgerEntry, error) {
	var out []*models.LedgerEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if e.UserID == userID && e.Symbol == symbol {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeWalletRepo) SumLedgerAmounts(userID, symbol string) (float64, error) {
	var sum float64
	for _, e := range f.entries {
		if e.UserID == userID && e.Symbol == symbol {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (f *fakeWalletRepo) CreateAdminAction(a *models.AdminAction) error {
	f.actions = append(f.actions, a)
	return nil
}

func (f *fakeWalletRepo) ListAdminActions(limit int) ([]*models.AdminAction, error) {
	return f.actions, nil
}

func (f *fakeWalletRepo) TotalBalances() (map[string]float64, error) {
	totals := make(map[string]float64)
	for _, w := range f.wallets {
		totals[w.Symbol] += w.Balance
	}
	return totals, nil
}

func (f *fakeWalletRepo) ExecuteInTransaction(fn func(repositories.WalletRepository) error) error {
	return fn(f)
}

func seedWallet(repo *fakeWalletRepo, userID, symbol string, balance float64) {
	repo.wallets[key(userID, symbol)] = &models.Wallet{
		UserID: userID, Symbol: symbol, Name: symbol, Balance: balance,
	}
}

func TestEnsureWalletIdempotent(t *testing.T) {
	repo := newFakeWalletRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	w1, err := svc.EnsureWallet(ctx, "u1", "usdt", "Tether")
	require.NoError(t, err)
	assert.Equal(t, "USDT", w1.Symbol)
	assert.Equal(t, float64(0), w1.Balance)

	_, err = svc.AdjustBalance(ctx, AdjustParams{
		UserID: "u1", Symbol: "USDT", Amount: 10, Direction: DirectionCredit,
	})
	require.NoError(t, err)

	w2, err := svc.EnsureWallet(ctx, "u1", "USDT", "Tether")
	require.NoError(t, err)
	assert.Equal(t, float64(10), w2.Balance, "ensure must not reset an existing wallet")
}

func TestAdjustBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("credit and debit write matching ledger entries", func(t *testing.T) {
		repo := newFakeWalletRepo()
		svc := NewService(repo, nil)
		seedWallet(repo, "u1", "USDT", 100)

		res, err := svc.AdjustBalance(ctx, AdjustParams{
			UserID: "u1", Symbol: "USDT", Amount: 40, Direction: DirectionDebit,
			EntryType: models.EntryWithdrawalHold, Note: "hold",
		})
		require.NoError(t, err)
		assert.Equal(t, float64(60), res.NewBalance)

		require.Len(t, repo.entries, 1)
		entry := repo.entries[0]
		assert.Equal(t, float64(-40), entry.Amount)
		assert.Equal(t, float64(100), entry.BalanceBefore)
		assert.Equal(t, float64(60), entry.BalanceAfter)
		assert.Equal(t, models.EntryWithdrawalHold, entry.Type)
	})

	t.Run("insufficient balance blocks the mutation entirely", func(t *testing.T) {
		repo := newFakeWalletRepo()
		svc := NewService(repo, nil)
		seedWallet(repo, "u1", "USDT", 30)

		_, err := svc.AdjustBalance(ctx, AdjustParams{
			UserID: "u1", Symbol: "USDT", Amount: 31, Direction: DirectionDebit,
		})
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Empty(t, repo.entries, "no ledger entry on rejected mutation")

		w, _ := svc.GetWallet(ctx, "u1", "USDT")
		assert.Equal(t, float64(30), w.Balance)
	})

	t.Run("invalid amount", func(t *testing.T) {
		repo := newFakeWalletRepo()
		svc := NewService(repo, nil)
		_, err := svc.AdjustBalance(ctx, AdjustParams{
			UserID: "u1", Symbol: "USDT", Amount: -5, Direction: DirectionCredit,
		})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("unknown wallet", func(t *testing.T) {
		repo := newFakeWalletRepo()
		svc := NewService(repo, nil)
		_, err := svc.AdjustBalance(ctx, AdjustParams{
			UserID: "nobody", Symbol: "USDT", Amount: 5, Direction: DirectionCredit,
		})
		assert.ErrorIs(t, err, ErrWalletNotFound)
	})

	t.Run("actor writes an admin action", func(t *testing.T) {
		repo := newFakeWalletRepo()
		svc := NewService(repo, nil)
		seedWallet(repo, "u1", "USDT", 0)

		_, err := svc.AdjustBalance(ctx, AdjustParams{
			UserID: "u1", Symbol: "USDT", Amount: 25, Direction: DirectionCredit,
			ActorID: "admin1", Note: "manual top up",
		})
		require.NoError(t, err)
		require.Len(t, repo.actions, 1)
		assert.Equal(t, "admin1", repo.actions[0].AdminID)
		assert.Equal(t, "credit_balance", repo.actions[0].ActionType)
		assert.Equal(t, "u1", repo.actions[0].TargetUserID)
	})
}

func TestBalanceNeverGoesNegative(t *testing.T) {
	repo := newFakeWalletRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	seedWallet(repo, "u1", "BTC", 0)

	ops := []struct {
		dir    Direction
		amount float64
	}{
		{DirectionCredit, 5}, {DirectionDebit, 3}, {DirectionDebit, 3},
		{DirectionCredit, 1}, {DirectionDebit, 10}, {DirectionDebit, 2},
	}
	for _, op := range ops {
		svc.AdjustBalance(ctx, AdjustParams{
			UserID: "u1", Symbol: "BTC", Amount: op.amount, Direction: op.dir,
		})
		w, err := svc.GetWallet(ctx, "u1", "BTC")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, w.Balance, float64(0))
	}
}

func TestReconcileFoldsLedgerToBalance(t *testing.T) {
	repo := newFakeWalletRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	seedWallet(repo, "u1", "ETH", 0)

	amounts := []float64{10, 4, 2.5}
	svc.AdjustBalance(ctx, AdjustParams{UserID: "u1", Symbol: "ETH", Amount: amounts[0], Direction: DirectionCredit})
	svc.AdjustBalance(ctx, AdjustParams{UserID: "u1", Symbol: "ETH", Amount: amounts[1], Direction: DirectionDebit})
	svc.AdjustBalance(ctx, AdjustParams{UserID: "u1", Symbol: "ETH", Amount: amounts[2], Direction: DirectionCredit})

	report, err := svc.Reconcile(ctx, "u1", "ETH")
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, report.Balance, report.LedgerSum)
	assert.Equal(t, amounts[0]-amounts[1]+amounts[2], report.Balance)
}

func TestHistoryNewestFirst(t *testing.T) {
	repo := newFakeWalletRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	seedWallet(repo, "u1", "USDT", 0)

	svc.AdjustBalance(ctx, AdjustParams{UserID: "u1", Symbol: "USDT", Amount: 1, Direction: DirectionCredit, Note: "first"})
	svc.AdjustBalance(ctx, AdjustParams{UserID: "u1", Symbol: "USDT", Amount: 2, Direction: DirectionCredit, Note: "second"})

	entries, err := svc.History(ctx, "u1", "USDT", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Note)
	assert.Equal(t, "first", entries[1].Note)
}
