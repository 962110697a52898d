package withdrawal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"custodia/internal/models"
	"custodia/internal/repositories"
	"custodia/internal/services/wallet"
	"custodia/internal/services/wallet/wallettest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWithdrawalRepo struct {
	mu        sync.Mutex
	requests  map[string]*models.WithdrawalRequest
	createErr error
}

func newFakeWithdrawalRepo() *fakeWithdrawalRepo {
	return &fakeWithdrawalRepo{requests: make(map[string]*models.WithdrawalRequest)}
}

func (r *fakeWithdrawalRepo) Create(request *models.WithdrawalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	request.RequestedAt = time.Now().UTC()
	clone := *request
	r.requests[request.ID] = &clone
	return nil
}

func (r *fakeWithdrawalRepo) GetByID(id string) (*models.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, repositories.ErrRequestNotFound
	}
	clone := *request
	return &clone, nil
}

func (r *fakeWithdrawalRepo) ListByStatus(status string, limit int) ([]*models.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.WithdrawalRequest
	for _, request := range r.requests {
		if status == "" || request.Status == status {
			clone := *request
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeWithdrawalRepo) ListByUser(userID string, limit int) ([]*models.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.WithdrawalRequest
	for _, request := range r.requests {
		if request.UserID == userID {
			clone := *request
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeWithdrawalRepo) MarkCompleted(id, adminID, txHash string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok || request.Status != models.WithdrawalPending {
		return false, nil
	}
	request.Status = models.WithdrawalCompleted
	request.AdminID = adminID
	request.TxHash = txHash
	request.ProcessedAt = &at
	return true, nil
}

func (r *fakeWithdrawalRepo) MarkRejected(id, adminID, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok || request.Status != models.WithdrawalPending {
		return false, nil
	}
	request.Status = models.WithdrawalRejected
	request.AdminID = adminID
	request.RejectionReason = reason
	request.ProcessedAt = &at
	return true, nil
}

type fakeNetworkRepo struct {
	configs map[string]*models.NetworkConfig
}

func (r *fakeNetworkRepo) Get(network string) (*models.NetworkConfig, error) {
	cfg, ok := r.configs[network]
	if !ok {
		return nil, repositories.ErrNetworkNotFound
	}
	return cfg, nil
}

func (r *fakeNetworkRepo) List() ([]*models.NetworkConfig, error) { return nil, nil }
func (r *fakeNetworkRepo) Upsert(cfg *models.NetworkConfig) error { return nil }

func newTestService(t *testing.T) (Service, *fakeWithdrawalRepo, *wallettest.Fake) {
	t.Helper()
	repo := newFakeWithdrawalRepo()
	wallets := wallettest.New()
	networks := &fakeNetworkRepo{configs: map[string]*models.NetworkConfig{
		"TRC20": {Network: "TRC20", WithdrawalFee: 1, MinWithdrawal: 10, IsActive: true},
		"OLD20": {Network: "OLD20", WithdrawalFee: 1, MinWithdrawal: 10, IsActive: false},
	}}
	svc := NewService(repo, networks, wallets, nil, Config{DefaultFee: 1, DefaultMinWithdrawal: 1})
	return svc, repo, wallets
}

func TestRequestHoldsFullAmount(t *testing.T) {
	svc, _, wallets := newTestService(t)
	wallets.Seed("user-1", "USDT", 100)

	request, err := svc.Request(context.Background(), "user-1", "usdt", "TRC20", 40, "TAddr123")
	require.NoError(t, err)

	assert.Equal(t, models.WithdrawalPending, request.Status)
	assert.Equal(t, "USDT", request.Symbol)
	assert.Equal(t, 40.0, request.Amount)
	assert.Equal(t, 1.0, request.Fee)
	assert.Equal(t, 39.0, request.NetAmount)
	assert.Equal(t, 60.0, wallets.Balance("user-1", "USDT"))

	require.Len(t, wallets.Entries, 1)
	entry := wallets.Entries[0]
	assert.Equal(t, models.EntryWithdrawalHold, entry.Type)
	assert.Equal(t, -40.0, entry.Amount)
	assert.Equal(t, 100.0, entry.BalanceBefore)
	assert.Equal(t, 60.0, entry.BalanceAfter)
	assert.Equal(t, request.ID, entry.ReferenceID)
}

func TestRequestValidation(t *testing.T) {
	svc, repo, wallets := newTestService(t)
	wallets.Seed("user-1", "USDT", 100)

	_, err := svc.Request(context.Background(), "user-1", "USDT", "TRC20", 0, "TAddr123")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Request(context.Background(), "user-1", "USDT", "TRC20", 40, "  ")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = svc.Request(context.Background(), "user-1", "USDT", "TRC20", 5, "TAddr123")
	assert.ErrorIs(t, err, ErrBelowMinimum)

	assert.Equal(t, 100.0, wallets.Balance("user-1", "USDT"))
	assert.Empty(t, repo.requests)
}

func TestRequestInsufficientBalanceLeavesNoTrace(t *testing.T) {
	svc, repo, wallets := newTestService(t)
	wallets.Seed("user-1", "USDT", 30)

	_, err := svc.Request(context.Background(), "user-1", "USDT", "TRC20", 40, "TAddr123")
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
	assert.Equal(t, 30.0, wallets.Balance("user-1", "USDT"))
	assert.Empty(t, wallets.Entries)
	assert.Empty(t, repo.requests)
}

func TestRequestReleasesHoldWhenCreateFails(t *testing.T) {
	svc, repo, wallets := newTestService(t)
	wallets.Seed("user-1", "USDT", 100)
	repo.createErr = errors.New("db down")

	_, err := svc.Request(context.Background(), "user-1", "USDT", "TRC20", 40, "TAddr123")
	require.Error(t, err)
	assert.Equal(t, 100.0, wallets.Balance("user-1", "USDT"))

	require.Len(t, wallets.Entries, 2)
	assert.Equal(t, models.EntryWithdrawalHold, wallets.Entries[0].Type)
	assert.Equal(t, models.EntryWithdrawalRefund, wallets.Entries[1].Type)
}

func TestApproveSettlesWithoutTouchingBalance(t *testing.T) {
	svc, _, wallets := newTestService(t)
	wallets.Seed("user-1", "USDT", 100)

	request, err := svc.Request(context.Background(), "user-1", "USDT", "TRC20", 40, "TAddr123")
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), request.ID, "admin-1", "0xabc")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalCompleted, approved.Status)
	assert.Equal(t, "0xabc", approved.TxHash)
	assert.Equal(t, "admin-1", approved.AdminID)
	require.NotNil(t, approved.ProcessedAt)

	// The hold already removed the funds; approval settles only state.
	assert.Equal(t, 60.0, wallets.Balance("user-1", "USDT"))
	require.Len(t, wallets.Entries, 1)

	require.Len(t, wallets.Actions, 1)
	assert.Equal(t, "approve_withdrawal", wallets.Actions[0].ActionType)
}

func TestApproveIsExactlyOnce(t *testing.T) {
	svc, _, wallets := newTestService(t)
	wallets.Seed("user-1", "USDT", 100)

	request, err := svc.Request(context.Background(), "user-1", "USDT", "TRC20", 40, "TAddr123")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), request.ID, "admin-1", "0xabc")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), request.ID, "admin-2", "0xdef")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	_, err = svc.Reject(context.Background(), request.ID, "admin-2", "too late")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, 60.0, wallets.Balance("user-1", "USDT"))

	_, err = svc.Approve(context.Background(), "no-such-id", "admin-1", "0xabc")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRejectRefundsHoldOnce(t *testing.T) {
	svc, _, wallets := newTestService(t)
	wallets.Seed("user-1", "USDT", 100)

	request, err := svc.Request(context.Background(), "user-1", "USDT", "TRC20", 40, "TAddr123")
	require.NoError(t, err)
	assert.Equal(t, 60.0, wallets.Balance("user-1", "USDT"))

	rejected, err := svc.Reject(context.Background(), request.ID, "admin-1", "address mismatch")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalRejected, rejected.Status)
	assert.Equal(t, "address mismatch", rejected.RejectionReason)
	assert.Equal(t, 100.0, wallets.Balance("user-1", "USDT"))

	require.Len(t, wallets.Entries, 2)
	refund := wallets.Entries[1]
	assert.Equal(t, models.EntryWithdrawalRefund, refund.Type)
	assert.Equal(t, 40.0, refund.Amount)

	// A second reject must not refund again.
	_, err = svc.Reject(context.Background(), request.ID, "admin-2", "again")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, 100.0, wallets.Balance("user-1", "USDT"))
	assert.Len(t, wallets.Entries, 2)
}

func TestRejectRefundFailureEscalates(t *testing.T) {
	svc, repo, wallets := newTestService(t)
	wallets.Seed("user-1", "USDT", 100)

	request, err := svc.Request(context.Background(), "user-1", "USDT", "TRC20", 40, "TAddr123")
	require.NoError(t, err)

	wallets.FailCredit["USDT"] = errors.New("wallet row locked")

	_, err = svc.Reject(context.Background(), request.ID, "admin-1", "bad address")
	assert.ErrorIs(t, err, ErrReconciliationRequired)

	// The request is terminally rejected even though the refund failed;
	// the operator reconciles the ledger by hand.
	stored, err := repo.GetByID(request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalRejected, stored.Status)
}

func TestRequestRejectsDeactivatedNetwork(t *testing.T) {
	svc, repo, wallets := newTestService(t)
	wallets.Seed("user-1", "USDT", 100)

	_, err := svc.Request(context.Background(), "user-1", "USDT", "OLD20", 40, "TAddr123")
	assert.ErrorIs(t, err, ErrNetworkDisabled)

	// No hold, no request: the deactivated network serves no terms.
	assert.Equal(t, 100.0, wallets.Balance("user-1", "USDT"))
	assert.Empty(t, wallets.Entries)
	assert.Empty(t, repo.requests)
}

func TestNetworkTermsFallBackToDefaults(t *testing.T) {
	svc, _, wallets := newTestService(t)
	wallets.Seed("user-1", "USDT", 100)

	request, err := svc.Request(context.Background(), "user-1", "USDT", "unknown-net", 40, "TAddr123")
	require.NoError(t, err)
	assert.Equal(t, 1.0, request.Fee)
	assert.Equal(t, 39.0, request.NetAmount)
}
