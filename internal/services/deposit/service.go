// Package deposit implements the administrator-verified deposit
// workflow. A submitted deposit never touches the balance; the wallet
// is credited exactly once when an administrator confirms it.
package deposit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"custodia/internal/models"
	"custodia/internal/repositories"
	"custodia/internal/services/notification"
	"custodia/internal/services/wallet"

	"github.com/sirupsen/logrus"
)

// Service defines the deposit workflow.
type Service interface {
	Request(ctx context.Context, userID string, amount float64, currency, network, walletAddress string) (*models.DepositRequest, error)
	Confirm(ctx context.Context, requestID, adminID string) (*models.DepositRequest, error)
	Reject(ctx context.Context, requestID, adminID, note string) (*models.DepositRequest, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]*models.DepositRequest, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.DepositRequest, error)
}

type service struct {
	repo     repositories.DepositRepository
	wallets  wallet.Service
	notifier notification.Notifier
	log      *logrus.Entry
}

// NewService creates a new deposit service.
func NewService(repo repositories.DepositRepository, wallets wallet.Service, notifier notification.Notifier) Service {
	if repo == nil {
		panic("repo is required")
	}
	if wallets == nil {
		panic("wallet service is required")
	}
	return &service{
		repo:     repo,
		wallets:  wallets,
		notifier: notifier,
		log:      logrus.WithField("component", "deposit"),
	}
}

func (s *service) Request(ctx context.Context, userID string, amount float64, currency, network, walletAddress string) (*models.DepositRequest, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if currency == "" {
		return nil, ErrInvalidCurrency
	}

	request := &models.DepositRequest{
		UserID:        userID,
		Amount:        amount,
		Currency:      currency,
		Network:       network,
		WalletAddress: walletAddress,
		Status:        models.DepositPending,
	}
	if err := s.repo.Create(request); err != nil {
		return nil, fmt.Errorf("failed to create deposit request: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, notification.Event{
			UserID:  userID,
			Type:    notification.EventDepositSubmitted,
			Title:   "Deposit Submitted",
			Message: fmt.Sprintf("Your deposit of %v %s was submitted and is awaiting verification", amount, currency),
			Data:    models.JSON{"request_id": request.ID, "amount": amount, "currency": currency},
		})
		s.notifier.NotifyAdmins(ctx, notification.Event{
			Type:    notification.EventDepositSubmitted,
			Title:   "New Deposit Request",
			Message: fmt.Sprintf("User %s reported a deposit of %v %s", userID, amount, currency),
			Data:    models.JSON{"request_id": request.ID, "user_id": userID},
		})
	}

	return request, nil
}

func (s *service) Confirm(ctx context.Context, requestID, adminID string) (*models.DepositRequest, error) {
	// Claim the request first. Whoever wins this transition owns the
	// credit; a loser gets zero rows and must not credit.
	ok, err := s.repo.MarkConfirmed(requestID, adminID, time.Now().UTC())
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

	if _, err := s.wallets.EnsureWallet(ctx, request.UserID, request.Currency, request.Currency+" Wallet"); err != nil {
		s.escalate(ctx, request, err)
		return nil, fmt.Errorf("%w: %v", ErrReconciliationRequired, err)
	}
	if _, err := s.wallets.AdjustBalance(ctx, wallet.AdjustParams{
		UserID:        request.UserID,
		Symbol:        request.Currency,
		Amount:        request.Amount,
		Direction:     wallet.DirectionCredit,
		EntryType:     models.EntryDeposit,
		ReferenceType: "deposit",
		ReferenceID:   requestID,
		Note:          "Deposit confirmed",
	}); err != nil {
		s.escalate(ctx, request, err)
		return nil, fmt.Errorf("%w: %v", ErrReconciliationRequired, err)
	}

	_ = s.wallets.LogAdminAction(ctx, adminID, request.UserID, "confirm_deposit", models.JSON{
		"request_id": requestID,
		"amount":     request.Amount,
		"currency":   request.Currency,
	})

	if s.notifier != nil {
		s.notifier.Notify(ctx, notification.Event{
			UserID:  request.UserID,
			Type:    notification.EventDepositConfirmed,
			Title:   "Deposit Confirmed",
			Message: fmt.Sprintf("Your deposit of %v %s has been credited", request.Amount, request.Currency),
			Data:    models.JSON{"request_id": requestID},
		})
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"admin_id":   adminID,
	}).Info("deposit confirmed")
	return request, nil
}

func (s *service) Reject(ctx context.Context, requestID, adminID, note string) (*models.DepositRequest, error) {
	ok, err := s.repo.MarkRejected(requestID, adminID, note, time.Now().UTC())
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

	_ = s.wallets.LogAdminAction(ctx, adminID, request.UserID, "reject_deposit", models.JSON{
		"request_id": requestID,
		"note":       note,
	})

	if s.notifier != nil {
		s.notifier.Notify(ctx, notification.Event{
			UserID:  request.UserID,
			Type:    notification.EventDepositRejected,
			Title:   "Deposit Rejected",
			Message: fmt.Sprintf("Your deposit of %v %s was rejected: %s", request.Amount, request.Currency, note),
			Data:    models.JSON{"request_id": requestID, "note": note},
		})
	}

	return request, nil
}

func (s *service) ListByStatus(ctx context.Context, status string, limit int) ([]*models.DepositRequest, error) {
	return s.repo.ListByStatus(status, limit)
}

func (s *service) ListByUser(ctx context.Context, userID string, limit int) ([]*models.DepositRequest, error) {
	return s.repo.ListByUser(userID, limit)
}

func (s *service) escalate(ctx context.Context, request *models.DepositRequest, cause error) {
	s.log.WithError(cause).WithFields(logrus.Fields{
		"request_id": request.ID,
		"user_id":    request.UserID,
		"amount":     request.Amount,
	}).Error("deposit credit failed after confirmation, manual reconciliation required")
	if s.notifier != nil {
		s.notifier.NotifyAdmins(ctx, notification.Event{
			Type:    notification.EventReconciliation,
			Title:   "Reconciliation Required",
			Message: fmt.Sprintf("Credit of %v %s for deposit %s failed after confirmation", request.Amount, request.Currency, request.ID),
			Data:    models.JSON{"request_id": request.ID, "user_id": request.UserID, "cause": cause.Error()},
		})
	}
}
