// Package yield pays daily returns on active investment positions. A
// run may execute on several instances at once; the unique earning row
// per position per calendar day keeps every position paid at most once.
package yield

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"custodia/internal/models"
	"custodia/internal/repositories"
	"custodia/internal/services/notification"
	"custodia/internal/services/wallet"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrBelowPlanMin     = errors.New("amount is below the plan minimum")
	ErrPlanNotFound     = errors.New("investment plan not found")
	ErrPlanInactive     = errors.New("investment plan is not active")
	ErrPositionNotFound = errors.New("investment position not found")
)

const defaultWorkers = 8

// RunReport summarizes one daily processing pass.
type RunReport struct {
	Date      string  `json:"date"`
	Processed int     `json:"processed"`
	Skipped   int     `json:"skipped"`
	Failed    int     `json:"failed"`
	TotalPaid float64 `json:"total_paid"`
}

// Service manages investment plans and positions and runs the daily
// payout.
type Service interface {
	CreatePlan(ctx context.Context, plan *models.InvestmentPlan) error
	ListPlans(ctx context.Context, activeOnly bool) ([]*models.InvestmentPlan, error)
	OpenPosition(ctx context.Context, userID, planID string, amount float64) (*models.Investment, error)
	ListEarnings(ctx context.Context, userID string, limit int) ([]*models.Earning, error)
	ProcessDaily(ctx context.Context, now time.Time, adminID string) (*RunReport, error)
}

type service struct {
	repo     repositories.InvestmentRepository
	wallets  wallet.Service
	notifier notification.Notifier
	workers  int
	log      *logrus.Entry
}

// NewService creates a new yield service. workers bounds the pool used
// to fan a daily run across positions; zero picks a default.
func NewService(repo repositories.InvestmentRepository, wallets wallet.Service, notifier notification.Notifier, workers int) Service {
	if repo == nil {
		panic("repo is required")
	}
	if wallets == nil {
		panic("wallet service is required")
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &service{
		repo:     repo,
		wallets:  wallets,
		notifier: notifier,
		workers:  workers,
		log:      logrus.WithField("component", "yield"),
	}
}

func (s *service) CreatePlan(ctx context.Context, plan *models.InvestmentPlan) error {
	if plan.Currency == "" {
		plan.Currency = "USDT"
	}
	plan.Currency = strings.ToUpper(strings.TrimSpace(plan.Currency))
	if plan.Kind == "" {
		plan.Kind = models.PlanKindDaily
	}
	return s.repo.CreatePlan(plan)
}

func (s *service) ListPlans(ctx context.Context, activeOnly bool) ([]*models.InvestmentPlan, error) {
	return s.repo.ListPlans(activeOnly)
}

// OpenPosition debits the principal from the user's wallet and creates
// an active position in the plan.
func (s *service) OpenPosition(ctx context.Context, userID, planID string, amount float64) (*models.Investment, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	plan, err := s.repo.GetPlan(planID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlanNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.IsActive {
		return nil, ErrPlanInactive
	}
	if amount < plan.MinAmount {
		return nil, fmt.Errorf("%w: minimum is %v %s", ErrBelowPlanMin, plan.MinAmount, plan.Currency)
	}

	position := &models.Investment{
		UserID:    userID,
		PlanID:    plan.ID,
		Amount:    amount,
		Currency:  plan.Currency,
		Status:    models.InvestmentActive,
		StartDate: time.Now().UTC(),
	}
	if plan.DurationDays > 0 {
		end := position.StartDate.AddDate(0, 0, plan.DurationDays)
		position.EndDate = &end
	}

	if _, err := s.wallets.AdjustBalance(ctx, wallet.AdjustParams{
		UserID:        userID,
		Symbol:        plan.Currency,
		Amount:        amount,
		Direction:     wallet.DirectionDebit,
		EntryType:     models.EntryInvestment,
		ReferenceType: "investment_plan",
		ReferenceID:   plan.ID,
		Note:          fmt.Sprintf("Investment in %s", plan.Name),
	}); err != nil {
		return nil, err
	}
	if err := s.repo.CreatePosition(position); err != nil {
		// Return the principal rather than leaving it debited against
		// a position that does not exist.
		if _, refundErr := s.wallets.AdjustBalance(ctx, wallet.AdjustParams{
			UserID:        userID,
			Symbol:        plan.Currency,
			Amount:        amount,
			Direction:     wallet.DirectionCredit,
			EntryType:     models.EntryInvestment,
			ReferenceType: "investment_plan",
			ReferenceID:   plan.ID,
			Note:          "Principal returned: position creation failed",
		}); refundErr != nil {
			s.log.WithError(refundErr).WithField("user_id", userID).Error("principal refund failed, manual reconciliation required")
		}
		return nil, fmt.Errorf("failed to create position: %w", err)
	}
	return position, nil
}

func (s *service) ListEarnings(ctx context.Context, userID string, limit int) ([]*models.Earning, error) {
	return s.repo.ListEarnings(userID, limit)
}

// ProcessDaily pays every active position its return for now's calendar
// day. Positions already paid for the day are skipped, so the run can
// be repeated after a partial failure.
func (s *service) ProcessDaily(ctx context.Context, now time.Time, adminID string) (*RunReport, error) {
	earnDate := now.UTC().Format("2006-01-02")
	positions, err := s.repo.ListActivePositions()
	if err != nil {
		return nil, fmt.Errorf("failed to list active positions: %w", err)
	}

	plans := make(map[string]*models.InvestmentPlan)
	for _, position := range positions {
		if _, ok := plans[position.PlanID]; ok {
			continue
		}
		plan, err := s.repo.GetPlan(position.PlanID)
		if err != nil {
			return nil, fmt.Errorf("failed to load plan %s: %w", position.PlanID, err)
		}
		plans[position.PlanID] = plan
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report = RunReport{Date: earnDate}
	)
	for _, position := range positions {
		position := position
		plan := plans[position.PlanID]
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			paid, amount, err := s.payPosition(ctx, position, plan, earnDate)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed++
			case !paid:
				report.Skipped++
			default:
				report.Processed++
				report.TotalPaid += amount
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			report.Failed++
			mu.Unlock()
			s.log.WithError(submitErr).Error("failed to submit yield task")
		}
	}
	wg.Wait()

	if adminID != "" {
		_ = s.wallets.LogAdminAction(ctx, adminID, "", "run_daily_yield", models.JSON{
			"date":       earnDate,
			"processed":  report.Processed,
			"skipped":    report.Skipped,
			"failed":     report.Failed,
			"total_paid": report.TotalPaid,
		})
	}

	s.log.WithFields(logrus.Fields{
		"date":      earnDate,
		"processed": report.Processed,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	}).Info("daily yield run finished")
	return &report, nil
}

func (s *service) payPosition(ctx context.Context, position *models.Investment, plan *models.InvestmentPlan, earnDate string) (bool, float64, error) {
	if position.EndDate != nil && position.EndDate.Format("2006-01-02") < earnDate {
		if err := s.repo.MarkCompleted(position.ID); err != nil {
			s.log.WithError(err).WithField("position_id", position.ID).Error("failed to complete expired position")
		}
		return false, 0, nil
	}

	amount := dailyReturn(position, plan)
	if amount <= 0 {
		return false, 0, nil
	}

	// The earning row is the idempotency gate: the unique index on
	// (investment, date) admits exactly one payout per day.
	created, err := s.repo.CreateEarning(&models.Earning{
		UserID:       position.UserID,
		InvestmentID: position.ID,
		EarnDate:     earnDate,
		Amount:       amount,
		Currency:     position.Currency,
	})
	if err != nil {
		s.log.WithError(err).WithField("position_id", position.ID).Error("failed to record earning")
		return false, 0, err
	}
	if !created {
		return false, 0, nil
	}

	if _, err := s.wallets.EnsureWallet(ctx, position.UserID, position.Currency, position.Currency+" Wallet"); err != nil {
		s.escalate(ctx, position, amount, earnDate, err)
		return false, 0, err
	}
	if _, err := s.wallets.AdjustBalance(ctx, wallet.AdjustParams{
		UserID:        position.UserID,
		Symbol:        position.Currency,
		Amount:        amount,
		Direction:     wallet.DirectionCredit,
		EntryType:     models.EntryYield,
		ReferenceType: "investment",
		ReferenceID:   position.ID,
		Note:          fmt.Sprintf("Daily return for %s", earnDate),
	}); err != nil {
		s.escalate(ctx, position, amount, earnDate, err)
		return false, 0, err
	}

	if err := s.repo.AddEarned(position.ID, amount); err != nil {
		s.log.WithError(err).WithField("position_id", position.ID).Error("failed to accumulate total earned")
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, notification.Event{
			UserID:  position.UserID,
			Type:    notification.EventDailyReturn,
			Title:   "Daily Return",
			Message: fmt.Sprintf("You earned %v %s on your investment", amount, position.Currency),
			Data:    models.JSON{"position_id": position.ID, "amount": amount, "date": earnDate},
		})
	}
	return true, amount, nil
}

// escalate reports a payout that failed after its earning row was
// recorded. The row already claims the day, so the missing credit is an
// operator reconciliation, same as a deposit credited after its claim.
func (s *service) escalate(ctx context.Context, position *models.Investment, amount float64, earnDate string, cause error) {
	s.log.WithError(cause).WithFields(logrus.Fields{
		"position_id": position.ID,
		"user_id":     position.UserID,
		"amount":      amount,
		"date":        earnDate,
	}).Error("yield credit failed after earning was recorded, manual reconciliation required")
	if s.notifier != nil {
		s.notifier.NotifyAdmins(ctx, notification.Event{
			Type:    notification.EventReconciliation,
			Title:   "Reconciliation Required",
			Message: fmt.Sprintf("Yield credit of %v %s for position %s on %s failed after the earning was recorded", amount, position.Currency, position.ID, earnDate),
			Data: models.JSON{
				"position_id": position.ID,
				"user_id":     position.UserID,
				"amount":      amount,
				"date":        earnDate,
				"cause":       cause.Error(),
			},
		})
	}
}

func dailyReturn(position *models.Investment, plan *models.InvestmentPlan) float64 {
	if plan == nil {
		return 0
	}
	if plan.Kind == models.PlanKindSubscription {
		return position.Amount * plan.AprRate / 365 / 100
	}
	return position.Amount * plan.DailyReturnPercent / 100
}
