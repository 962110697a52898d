package deposit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"custodia/internal/models"
	"custodia/internal/repositories"
	"custodia/internal/services/wallet/wallettest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDepositRepo struct {
	mu       sync.Mutex
	requests map[string]*models.DepositRequest
}

func newFakeDepositRepo() *fakeDepositRepo {
	return &fakeDepositRepo{requests: make(map[string]*models.DepositRequest)}
}

func (r *fakeDepositRepo) Create(request *models.DepositRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	request.CreatedAt = time.Now().UTC()
	clone := *request
	r.requests[request.ID] = &clone
	return nil
}

func (r *fakeDepositRepo) GetByID(id string) (*models.DepositRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, repositories.ErrRequestNotFound
	}
	clone := *request
	return &clone, nil
}

func (r *fakeDepositRepo) ListByStatus(status string, limit int) ([]*models.DepositRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.DepositRequest
	for _, request := range r.requests {
		if status == "" || request.Status == status {
			clone := *request
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeDepositRepo) ListByUser(userID string, limit int) ([]*models.DepositRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.DepositRequest
	for _, request := range r.requests {
		if request.UserID == userID {
			clone := *request
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeDepositRepo) MarkConfirmed(id, adminID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok || request.Status != models.DepositPending {
		return false, nil
	}
	request.Status = models.DepositConfirmed
	request.AdminID = adminID
	request.ConfirmedAt = &at
	return true, nil
}

func (r *fakeDepositRepo) MarkRejected(id, adminID, note string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok || request.Status != models.DepositPending {
		return false, nil
	}
	request.Status = models.DepositRejected
	request.AdminID = adminID
	request.AdminNote = note
	return true, nil
}

func TestRequestCreatesPendingWithoutCredit(t *testing.T) {
	repo := newFakeDepositRepo()
	wallets := wallettest.New()
	svc := NewService(repo, wallets, nil)

	request, err := svc.Request(context.Background(), "user-1", 25, "usdt", "TRC20", "TAddr123")
	require.NoError(t, err)
	assert.Equal(t, models.DepositPending, request.Status)
	assert.Equal(t, "USDT", request.Currency)
	assert.Equal(t, 25.0, request.Amount)

	// Nothing is credited until an administrator confirms.
	assert.Equal(t, 0.0, wallets.Balance("user-1", "USDT"))
	assert.Empty(t, wallets.Entries)
}

func TestRequestValidation(t *testing.T) {
	svc := NewService(newFakeDepositRepo(), wallettest.New(), nil)

	_, err := svc.Request(context.Background(), "user-1", 0, "USDT", "", "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Request(context.Background(), "user-1", 25, "  ", "", "")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestConfirmCreditsExactlyOnce(t *testing.T) {
	repo := newFakeDepositRepo()
	wallets := wallettest.New()
	svc := NewService(repo, wallets, nil)

	request, err := svc.Request(context.Background(), "user-1", 25, "USDT", "TRC20", "TAddr123")
	require.NoError(t, err)

	confirmed, err := svc.Confirm(context.Background(), request.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.DepositConfirmed, confirmed.Status)
	assert.Equal(t, "admin-1", confirmed.AdminID)
	assert.Equal(t, 25.0, wallets.Balance("user-1", "USDT"))

	require.Len(t, wallets.Entries, 1)
	entry := wallets.Entries[0]
	assert.Equal(t, models.EntryDeposit, entry.Type)
	assert.Equal(t, 25.0, entry.Amount)
	assert.Equal(t, request.ID, entry.ReferenceID)

	require.Len(t, wallets.Actions, 1)
	assert.Equal(t, "confirm_deposit", wallets.Actions[0].ActionType)

	// A second confirmation must not credit again.
	_, err = svc.Confirm(context.Background(), request.ID, "admin-2")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, 25.0, wallets.Balance("user-1", "USDT"))
	assert.Len(t, wallets.Entries, 1)
}

func TestConfirmCreatesWalletWhenMissing(t *testing.T) {
	repo := newFakeDepositRepo()
	wallets := wallettest.New()
	svc := NewService(repo, wallets, nil)

	request, err := svc.Request(context.Background(), "user-new", 10, "BTC", "", "")
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), request.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, wallets.Balance("user-new", "BTC"))
}

func TestConfirmUnknownRequest(t *testing.T) {
	svc := NewService(newFakeDepositRepo(), wallettest.New(), nil)

	_, err := svc.Confirm(context.Background(), "no-such-id", "admin-1")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestConfirmCreditFailureEscalates(t *testing.T) {
	repo := newFakeDepositRepo()
	wallets := wallettest.New()
	svc := NewService(repo, wallets, nil)

	request, err := svc.Request(context.Background(), "user-1", 25, "USDT", "TRC20", "TAddr123")
	require.NoError(t, err)

	wallets.FailCredit["USDT"] = errors.New("wallet row locked")

	_, err = svc.Confirm(context.Background(), request.ID, "admin-1")
	assert.ErrorIs(t, err, ErrReconciliationRequired)

	// The request is terminally confirmed; the missing credit is an
	// operator reconciliation, not a retryable confirm.
	stored, err := repo.GetByID(request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DepositConfirmed, stored.Status)
}

func TestRejectLeavesBalanceUntouched(t *testing.T) {
	repo := newFakeDepositRepo()
	wallets := wallettest.New()
	svc := NewService(repo, wallets, nil)
	wallets.Seed("user-1", "USDT", 50)

	request, err := svc.Request(context.Background(), "user-1", 25, "USDT", "TRC20", "TAddr123")
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), request.ID, "admin-1", "no matching transfer")
	require.NoError(t, err)
	assert.Equal(t, models.DepositRejected, rejected.Status)
	assert.Equal(t, "no matching transfer", rejected.AdminNote)
	assert.Equal(t, 50.0, wallets.Balance("user-1", "USDT"))
	assert.Empty(t, wallets.Entries)

	_, err = svc.Confirm(context.Background(), request.ID, "admin-2")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}
