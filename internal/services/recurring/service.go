// Package recurring implements administrator-defined schedules that
// credit wallets at fixed intervals. Each due rule is claimed through a
// compare-and-swap on its next execution time, so overlapping scheduler
// runs credit at most once per period.
package recurring

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

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrInvalidSymbol    = errors.New("symbol is required")
	ErrInvalidFrequency = errors.New("frequency must be daily, weekly or monthly")
	ErrRuleNotFound     = errors.New("recurring rule not found")
)

// CreateParams describes a new recurring credit rule.
type CreateParams struct {
	UserID    string
	Symbol    string
	Amount    float64
	Frequency string
	StartDate time.Time
	EndDate   *time.Time
}

// RunReport summarizes one scheduler pass over the due rules.
type RunReport struct {
	Executed int `json:"executed"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Service manages recurring credit rules and executes the due ones.
type Service interface {
	CreateRule(ctx context.Context, p CreateParams) (*models.RecurringRule, error)
	GetRule(ctx context.Context, id string) (*models.RecurringRule, error)
	ListRules(ctx context.Context, activeOnly bool) ([]*models.RecurringRule, error)
	DeactivateRule(ctx context.Context, id string) error
	ExecuteDue(ctx context.Context, now time.Time) (*RunReport, error)
}

type service struct {
	repo     repositories.RecurringRepository
	wallets  wallet.Service
	notifier notification.Notifier
	log      *logrus.Entry
}

// NewService creates a new recurring credit service.
func NewService(repo repositories.RecurringRepository, wallets wallet.Service, notifier notification.Notifier) Service {
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
		log:      logrus.WithField("component", "recurring"),
	}
}

func (s *service) CreateRule(ctx context.Context, p CreateParams) (*models.RecurringRule, error) {
	symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}
	switch p.Frequency {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly:
	default:
		return nil, ErrInvalidFrequency
	}

	start := p.StartDate
	if start.IsZero() {
		start = time.Now().UTC()
	}
	rule := &models.RecurringRule{
		UserID:          p.UserID,
		Symbol:          symbol,
		Amount:          p.Amount,
		Frequency:       p.Frequency,
		StartDate:       start,
		EndDate:         p.EndDate,
		NextExecutionAt: start,
		IsActive:        true,
	}
	if err := s.repo.Create(rule); err != nil {
		return nil, fmt.Errorf("failed to create recurring rule: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"rule_id":   rule.ID,
		"user_id":   rule.UserID,
		"frequency": rule.Frequency,
	}).Info("recurring rule created")
	return rule, nil
}

func (s *service) GetRule(ctx context.Context, id string) (*models.RecurringRule, error) {
	rule, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrRuleNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return rule, nil
}

func (s *service) ListRules(ctx context.Context, activeOnly bool) ([]*models.RecurringRule, error) {
	return s.repo.List(activeOnly)
}

func (s *service) DeactivateRule(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(id); err != nil {
		if errors.Is(err, repositories.ErrRuleNotFound) {
			return ErrRuleNotFound
		}
		return err
	}
	return s.repo.SetActive(id, false)
}

// ExecuteDue claims and executes every rule whose next execution time
// has passed. Advancing the schedule happens before crediting: losing
// the compare-and-swap means another instance owns this period.
func (s *service) ExecuteDue(ctx context.Context, now time.Time) (*RunReport, error) {
	due, err := s.repo.Due(now)
	if err != nil {
		return nil, fmt.Errorf("failed to load due rules: %w", err)
	}

	report := &RunReport{}
	for _, rule := range due {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		next := nextExecution(rule.Frequency, now)
		claimed, err := s.repo.Advance(rule.ID, rule.NextExecutionAt, next, now)
		if err != nil {
			report.Failed++
			s.log.WithError(err).WithField("rule_id", rule.ID).Error("failed to advance recurring rule")
			continue
		}
		if !claimed {
			report.Skipped++
			continue
		}

		if err := s.credit(ctx, rule); err != nil {
			report.Failed++
			s.log.WithError(err).WithFields(logrus.Fields{
				"rule_id": rule.ID,
				"user_id": rule.UserID,
			}).Error("recurring credit failed after schedule advance")
			if s.notifier != nil {
				s.notifier.NotifyAdmins(ctx, notification.Event{
					Type:    notification.EventReconciliation,
					Title:   "Reconciliation Required",
					Message: fmt.Sprintf("Recurring credit of %v %s for rule %s failed", rule.Amount, rule.Symbol, rule.ID),
					Data:    models.JSON{"rule_id": rule.ID, "user_id": rule.UserID, "cause": err.Error()},
				})
			}
			continue
		}
		report.Executed++
	}

	s.log.WithFields(logrus.Fields{
		"executed": report.Executed,
		"skipped":  report.Skipped,
		"failed":   report.Failed,
	}).Info("recurring run finished")
	return report, nil
}

func (s *service) credit(ctx context.Context, rule *models.RecurringRule) error {
	if _, err := s.wallets.EnsureWallet(ctx, rule.UserID, rule.Symbol, rule.Symbol+" Wallet"); err != nil {
		return err
	}
	_, err := s.wallets.AdjustBalance(ctx, wallet.AdjustParams{
		UserID:        rule.UserID,
		Symbol:        rule.Symbol,
		Amount:        rule.Amount,
		Direction:     wallet.DirectionCredit,
		EntryType:     models.EntryRecurringCredit,
		ReferenceType: "recurring_rule",
		ReferenceID:   rule.ID,
		Note:          fmt.Sprintf("Recurring %s credit", rule.Frequency),
	})
	if err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, notification.Event{
			UserID:  rule.UserID,
			Type:    notification.EventRecurringCredit,
			Title:   "Recurring Credit",
			Message: fmt.Sprintf("You received a recurring credit of %v %s", rule.Amount, rule.Symbol),
			Data:    models.JSON{"rule_id": rule.ID, "amount": rule.Amount, "symbol": rule.Symbol},
		})
	}
	return nil
}

// nextExecution advances one whole period from the execution instant,
// not from the stored schedule, so a rule that was overdue for days does
// not fire repeatedly to catch up.
func nextExecution(frequency string, from time.Time) time.Time {
	switch frequency {
	case models.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case models.FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from.AddDate(0, 0, 1)
	}
}
