package repositories

import (
	"errors"
	"fmt"

	"custodia/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvestmentRepository persists plans, positions and earnings.
// CreateEarning inserts against the unique (investment, date) index with
// ON CONFLICT DO NOTHING; a false return means the position was already
// paid for that date.
type InvestmentRepository interface {
	CreatePlan(plan *models.InvestmentPlan) error
	GetPlan(id string) (*models.InvestmentPlan, error)
	ListPlans(activeOnly bool) ([]*models.InvestmentPlan, error)

	CreatePosition(position *models.Investment) error
	GetPosition(id string) (*models.Investment, error)
	ListActivePositions() ([]*models.Investment, error)
	AddEarned(positionID string, amount float64) error
	MarkCompleted(positionID string) error

	CreateEarning(earning *models.Earning) (bool, error)
	ListEarnings(userID string, limit int) ([]*models.Earning, error)
}

type investmentRepository struct {
	db *gorm.DB
}

func NewInvestmentRepository(db *gorm.DB) InvestmentRepository {
	return &investmentRepository{db: db}
}

func (r *investmentRepository) CreatePlan(plan *models.InvestmentPlan) error {
	if err := r.db.Create(plan).Error; err != nil {
		return fmt.Errorf("failed to create investment plan: %w", err)
	}
	return nil
}

func (r *investmentRepository) GetPlan(id string) (*models.InvestmentPlan, error) {
	var plan models.InvestmentPlan
	if err := r.db.First(&plan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get investment plan: %w", err)
	}
	return &plan, nil
}

func (r *investmentRepository) ListPlans(activeOnly bool) ([]*models.InvestmentPlan, error) {
	var plans []*models.InvestmentPlan
	q := r.db.Order("created_at")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to list investment plans: %w", err)
	}
	return plans, nil
}

func (r *investmentRepository) CreatePosition(position *models.Investment) error {
	if err := r.db.Create(position).Error; err != nil {
		return fmt.Errorf("failed to create investment position: %w", err)
	}
	return nil
}

func (r *investmentRepository) GetPosition(id string) (*models.Investment, error) {
	var position models.Investment
	if err := r.db.First(&position, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPositionNotFound
		}
		return nil, fmt.Errorf("failed to get investment position: %w", err)
	}
	return &position, nil
}

func (r *investmentRepository) ListActivePositions() ([]*models.Investment, error) {
	var positions []*models.Investment
	err := r.db.Where("status = ?", models.InvestmentActive).Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active positions: %w", err)
	}
	return positions, nil
}

func (r *investmentRepository) AddEarned(positionID string, amount float64) error {
	result := r.db.Model(&models.Investment{}).
		Where("id = ?", positionID).
		UpdateColumn("total_earned", gorm.Expr("total_earned + ?", amount))
	if result.Error != nil {
		return fmt.Errorf("failed to update total earned: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPositionNotFound
	}
	return nil
}

func (r *investmentRepository) MarkCompleted(positionID string) error {
	result := r.db.Model(&models.Investment{}).
		Where("id = ? AND status = ?", positionID, models.InvestmentActive).
		Update("status", models.InvestmentCompleted)
	if result.Error != nil {
		return fmt.Errorf("failed to complete position: %w", result.Error)
	}
	return nil
}

func (r *investmentRepository) CreateEarning(earning *models.Earning) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "investment_id"}, {Name: "earn_date"}},
		DoNothing: true,
	}).Create(earning)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create earning: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *investmentRepository) ListEarnings(userID string, limit int) ([]*models.Earning, error) {
	var earnings []*models.Earning
	q := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&earnings).Error; err != nil {
		return nil, fmt.Errorf("failed to list earnings: %w", err)
	}
	return earnings, nil
}
