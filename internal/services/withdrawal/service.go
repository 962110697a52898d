// Package withdrawal implements the administrator-settled withdrawal
// workflow. The full amount is held from the wallet at request time so
// several pending requests cannot jointly overdraw a wallet; approval
// settles without touching the balance and rejection refunds the hold.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"custodia/internal/models"
	"custodia/internal/repositories"
	"custodia/internal/services/notification"
	"custodia/internal/services/wallet"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config carries the fallback fee and minimum used when a network has
// no stored configuration.
type Config struct {
	DefaultFee           float64
	DefaultMinWithdrawal float64
}

// Service defines the withdrawal workflow.
type Service interface {
	Request(ctx context.Context, userID, symbol, network string, amount float64, toAddress string) (*models.WithdrawalRequest, error)
	Approve(ctx context.Context, requestID, adminID, txHash string) (*models.WithdrawalRequest, error)
	Reject(ctx context.Context, requestID, adminID, reason string) (*models.WithdrawalRequest, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]*models.WithdrawalRequest, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.WithdrawalRequest, error)
}

type service struct {
	repo     repositories.WithdrawalRepository
	networks repositories.NetworkRepository
	wallets  wallet.Service
	notifier notification.Notifier
	config   Config
	log      *logrus.Entry
}

// NewService creates a new withdrawal service.
func NewService(
	repo repositories.WithdrawalRepository,
	networks repositories.NetworkRepository,
	wallets wallet.Service,
	notifier notification.Notifier,
	config Config,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if wallets == nil {
		panic("wallet service is required")
	}
	return &service{
		repo:     repo,
		networks: networks,
		wallets:  wallets,
		notifier: notifier,
		config:   config,
		log:      logrus.WithField("component", "withdrawal"),
	}
}

// networkTerms resolves the fee and minimum for a network. Unknown
// networks fall back to the configured defaults; a network an admin
// has deactivated accepts no withdrawals at all.
func (s *service) networkTerms(network string) (fee, min float64, err error) {
	fee, min = s.config.DefaultFee, s.config.DefaultMinWithdrawal
	if s.networks == nil {
		return fee, min, nil
	}
	cfg, getErr := s.networks.Get(network)
	if getErr != nil {
		return fee, min, nil
	}
	if !cfg.IsActive {
		return 0, 0, fmt.Errorf("%w: %s", ErrNetworkDisabled, network)
	}
	return cfg.WithdrawalFee, cfg.MinWithdrawal, nil
}

func (s *service) Request(ctx context.Context, userID, symbol, network string, amount float64, toAddress string) (*models.WithdrawalRequest, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	toAddress = strings.TrimSpace(toAddress)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if toAddress == "" {
		return nil, ErrInvalidAddress
	}

	fee, min, err := s.networkTerms(network)
	if err != nil {
		return nil, err
	}
	if amount < min {
		return nil, fmt.Errorf("%w: minimum for %s is %v", ErrBelowMinimum, network, min)
	}
	netAmount := amount - fee
	if netAmount <= 0 {
		return nil, ErrAmountTooSmall
	}

	// Hold the full amount before the request exists: funds leave the
	// spendable balance ahead of any administrator decision.
	requestID := uuid.NewString()
	_, err = s.wallets.AdjustBalance(ctx, wallet.AdjustParams{
		UserID:        userID,
		Symbol:        symbol,
		Amount:        amount,
		Direction:     wallet.DirectionDebit,
		EntryType:     models.EntryWithdrawalHold,
		ReferenceType: "withdrawal",
		ReferenceID:   requestID,
		Note:          "Withdrawal request hold",
	})
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) || errors.Is(err, wallet.ErrWalletNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to hold balance: %w", err)
	}

	request := &models.WithdrawalRequest{
		ID:        requestID,
		UserID:    userID,
		Symbol:    symbol,
		Network:   network,
		Amount:    amount,
		Fee:       fee,
		NetAmount: netAmount,
		ToAddress: toAddress,
		Status:    models.WithdrawalPending,
	}
	if err := s.repo.Create(request); err != nil {
		// The hold is already on the ledger; release it rather than
		// leaving funds stranded.
		if _, refundErr := s.wallets.AdjustBalance(ctx, wallet.AdjustParams{
			UserID:        userID,
			Symbol:        symbol,
			Amount:        amount,
			Direction:     wallet.DirectionCredit,
			EntryType:     models.EntryWithdrawalRefund,
			ReferenceType: "withdrawal",
			ReferenceID:   requestID,
			Note:          "Hold released: request creation failed",
		}); refundErr != nil {
			s.escalate(ctx, userID, symbol, amount, requestID, refundErr)
		}
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, notification.Event{
			UserID:  userID,
			Type:    notification.EventWithdrawalPending,
			Title:   "Withdrawal Requested",
			Message: fmt.Sprintf("Your withdrawal of %v %s is pending review", amount, symbol),
			Data:    models.JSON{"request_id": requestID, "amount": amount, "symbol": symbol},
		})
		s.notifier.NotifyAdmins(ctx, notification.Event{
			Type:    notification.EventWithdrawalPending,
			Title:   "New Withdrawal Request",
			Message: fmt.Sprintf("User %s requested %v %s via %s", userID, amount, symbol, network),
			Data:    models.JSON{"request_id": requestID, "user_id": userID},
		})
	}

	return request, nil
}

func (s *service) Approve(ctx context.Context, requestID, adminID, txHash string) (*models.WithdrawalRequest, error) {
	ok, err := s.repo.MarkCompleted(requestID, adminID, txHash, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, getErr := s.repo.GetByID(requestID); getErr != nil {
			return nil, ErrRequestNotFound
		}
		return nil, ErrAlreadyProcessed
	}

	request, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	// No balance mutation here: the hold already removed the funds.
	_ = s.wallets.LogAdminAction(ctx, adminID, request.UserID, "approve_withdrawal", models.JSON{
		"request_id": requestID,
		"amount":     request.Amount,
		"symbol":     request.Symbol,
		"tx_hash":    txHash,
	})

	if s.notifier != nil {
		s.notifier.Notify(ctx, notification.Event{
			UserID:  request.UserID,
			Type:    notification.EventWithdrawalCompleted,
			Title:   "Withdrawal Completed",
			Message: fmt.Sprintf("Your withdrawal of %v %s is complete", request.Amount, request.Symbol),
			Data:    models.JSON{"request_id": requestID, "tx_hash": txHash},
		})
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"admin_id":   adminID,
	}).Info("withdrawal approved")
	return request, nil
}

func (s *service) Reject(ctx context.Context, requestID, adminID, reason string) (*models.WithdrawalRequest, error) {
	// Transition first: the terminal state claims the request, so a
	// concurrent reject cannot refund twice.
	ok, err := s.repo.MarkRejected(requestID, adminID, reason, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, getErr := s.repo.GetByID(requestID); getErr != nil {
			return nil, ErrRequestNotFound
		}
		return nil, ErrAlreadyProcessed
	}

	request, err := s.repo.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	if _, err := s.wallets.AdjustBalance(ctx, wallet.AdjustParams{
		UserID:        request.UserID,
		Symbol:        request.Symbol,
		Amount:        request.Amount,
		Direction:     wallet.DirectionCredit,
		EntryType:     models.EntryWithdrawalRefund,
		ReferenceType: "withdrawal",
		ReferenceID:   requestID,
		Note:          fmt.Sprintf("Withdrawal rejected: %s", reason),
	}); err != nil {
		s.escalate(ctx, request.UserID, request.Symbol, request.Amount, requestID, err)
		return nil, fmt.Errorf("%w: %v", ErrReconciliationRequired, err)
	}

	_ = s.wallets.LogAdminAction(ctx, adminID, request.UserID, "reject_withdrawal", models.JSON{
		"request_id": requestID,
		"reason":     reason,
	})

	if s.notifier != nil {
		s.notifier.Notify(ctx, notification.Event{
			UserID:  request.UserID,
			Type:    notification.EventWithdrawalRejected,
			Title:   "Withdrawal Rejected",
			Message: fmt.Sprintf("Your withdrawal of %v %s was rejected: %s", request.Amount, request.Symbol, reason),
			Data:    models.JSON{"request_id": requestID, "reason": reason},
		})
	}

	return request, nil
}

func (s *service) ListByStatus(ctx context.Context, status string, limit int) ([]*models.WithdrawalRequest, error) {
	return s.repo.ListByStatus(status, limit)
}

func (s *service) ListByUser(ctx context.Context, userID string, limit int) ([]*models.WithdrawalRequest, error) {
	return s.repo.ListByUser(userID, limit)
}

func (s *service) escalate(ctx context.Context, userID, symbol string, amount float64, requestID string, cause error) {
	s.log.WithError(cause).WithFields(logrus.Fields{
		"request_id": requestID,
		"user_id":    userID,
		"symbol":     symbol,
		"amount":     amount,
	}).Error("withdrawal refund failed, manual reconciliation required")
	if s.notifier != nil {
		s.notifier.NotifyAdmins(ctx, notification.Event{
			Type:    notification.EventReconciliation,
			Title:   "Reconciliation Required",
			Message: fmt.Sprintf("Refund of %v %s for withdrawal %s failed", amount, symbol, requestID),
			Data:    models.JSON{"request_id": requestID, "user_id": userID, "cause": cause.Error()},
		})
	}
}
