// Package exchange moves value between two wallets of one user as a
// two-leg saga: debit the source, credit the target, and compensate the
// source if the credit cannot land.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"custodia/internal/models"
	"custodia/internal/services/notification"
	"custodia/internal/services/wallet"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrSameSymbol             = errors.New("source and target symbols must differ")
	ErrExchangeFailed         = errors.New("exchange failed and the debit was reversed")
	ErrReconciliationRequired = errors.New("exchange debit could not be reversed, manual reconciliation required")
)

// Saga states as they appear in the result and on alerts.
const (
	StateDebited            = "debited"
	StateCredited           = "credited"
	StateCompensated        = "compensated"
	StateCompensationFailed = "compensation_failed"
)

// Result reports a finished exchange.
type Result struct {
	ExchangeID  string  `json:"exchange_id"`
	State       string  `json:"state"`
	FromSymbol  string  `json:"from_symbol"`
	ToSymbol    string  `json:"to_symbol"`
	Amount      float64 `json:"amount"`
	ToAmount    float64 `json:"to_amount"`
	FromBalance float64 `json:"from_balance"`
	ToBalance   float64 `json:"to_balance"`
}

// Service performs wallet-to-wallet exchanges.
type Service interface {
	Exchange(ctx context.Context, userID, fromSymbol, toSymbol string, amount, toAmount float64, actorID string) (*Result, error)
}

type service struct {
	wallets  wallet.Service
	notifier notification.Notifier
	log      *logrus.Entry
}

// NewService creates a new exchange service.
func NewService(wallets wallet.Service, notifier notification.Notifier) Service {
	if wallets == nil {
		panic("wallet service is required")
	}
	return &service{
		wallets:  wallets,
		notifier: notifier,
		log:      logrus.WithField("component", "exchange"),
	}
}

func (s *service) Exchange(ctx context.Context, userID, fromSymbol, toSymbol string, amount, toAmount float64, actorID string) (*Result, error) {
	fromSymbol = strings.ToUpper(strings.TrimSpace(fromSymbol))
	toSymbol = strings.ToUpper(strings.TrimSpace(toSymbol))
	if amount <= 0 || toAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if fromSymbol == toSymbol {
		return nil, ErrSameSymbol
	}

	exchangeID := uuid.NewString()
	note := fmt.Sprintf("Exchange %v %s to %v %s", amount, fromSymbol, toAmount, toSymbol)

	debit, err := s.wallets.AdjustBalance(ctx, wallet.AdjustParams{
		UserID:        userID,
		Symbol:        fromSymbol,
		Amount:        amount,
		Direction:     wallet.DirectionDebit,
		EntryType:     models.EntryExchangeOut,
		ReferenceType: "exchange",
		ReferenceID:   exchangeID,
		Note:          note,
	})
	if err != nil {
		return nil, err
	}

	credit, err := s.creditTarget(ctx, userID, toSymbol, toAmount, exchangeID, note)
	if err != nil {
		return nil, s.compensate(ctx, userID, fromSymbol, amount, exchangeID, err)
	}

	if actorID != "" {
		_ = s.wallets.LogAdminAction(ctx, actorID, userID, "exchange_balance", models.JSON{
			"exchange_id": exchangeID,
			"from_symbol": fromSymbol,
			"to_symbol":   toSymbol,
			"amount":      amount,
			"to_amount":   toAmount,
		})
	}

	s.log.WithFields(logrus.Fields{
		"exchange_id": exchangeID,
		"user_id":     userID,
		"from":        fromSymbol,
		"to":          toSymbol,
	}).Info("exchange completed")

	return &Result{
		ExchangeID:  exchangeID,
		State:       StateCredited,
		FromSymbol:  fromSymbol,
		ToSymbol:    toSymbol,
		Amount:      amount,
		ToAmount:    toAmount,
		FromBalance: debit.NewBalance,
		ToBalance:   credit.NewBalance,
	}, nil
}

func (s *service) creditTarget(ctx context.Context, userID, toSymbol string, toAmount float64, exchangeID, note string) (*wallet.AdjustResult, error) {
	if _, err := s.wallets.EnsureWallet(ctx, userID, toSymbol, toSymbol+" Wallet"); err != nil {
		return nil, err
	}
	return s.wallets.AdjustBalance(ctx, wallet.AdjustParams{
		UserID:        userID,
		Symbol:        toSymbol,
		Amount:        toAmount,
		Direction:     wallet.DirectionCredit,
		EntryType:     models.EntryExchangeIn,
		ReferenceType: "exchange",
		ReferenceID:   exchangeID,
		Note:          note,
	})
}

// compensate reverses the debit leg after a failed credit. Its return
// value is the error the caller should surface.
func (s *service) compensate(ctx context.Context, userID, fromSymbol string, amount float64, exchangeID string, cause error) error {
	_, err := s.wallets.AdjustBalance(ctx, wallet.AdjustParams{
		UserID:        userID,
		Symbol:        fromSymbol,
		Amount:        amount,
		Direction:     wallet.DirectionCredit,
		EntryType:     models.EntryExchangeReversal,
		ReferenceType: "exchange",
		ReferenceID:   exchangeID,
		Note:          "Exchange reversed: credit leg failed",
	})
	if err == nil {
		s.log.WithError(cause).WithFields(logrus.Fields{
			"exchange_id": exchangeID,
			"user_id":     userID,
		}).Warn("exchange compensated after failed credit")
		return fmt.Errorf("%w: %v", ErrExchangeFailed, cause)
	}

	s.log.WithError(err).WithFields(logrus.Fields{
		"exchange_id": exchangeID,
		"user_id":     userID,
		"symbol":      fromSymbol,
		"amount":      amount,
		"state":       StateCompensationFailed,
	}).Error("exchange compensation failed, manual reconciliation required")
	if s.notifier != nil {
		s.notifier.NotifyAdmins(ctx, notification.Event{
			Type:    notification.EventReconciliation,
			Title:   "Reconciliation Required",
			Message: fmt.Sprintf("Exchange %s debited %v %s but neither credit nor reversal landed", exchangeID, amount, fromSymbol),
			Data: models.JSON{
				"exchange_id": exchangeID,
				"user_id":     userID,
				"state":       StateCompensationFailed,
				"cause":       cause.Error(),
			},
		})
	}
	return fmt.Errorf("%w: %v", ErrReconciliationRequired, err)
}
