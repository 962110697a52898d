package repositories

import (
	"errors"
	"fmt"
	"time"

	"custodia/internal/models"

	"gorm.io/gorm"
)

// RecurringRepository persists recurring credit rules. Advance is a
// compare-and-swap on next_execution_at so two overlapping scheduler
// runs cannot both execute the same due rule: a false return means
// another run already advanced it.
type RecurringRepository interface {
	Create(rule *models.RecurringRule) error
	GetByID(id string) (*models.RecurringRule, error)
	List(activeOnly bool) ([]*models.RecurringRule, error)
	Due(now time.Time) ([]*models.RecurringRule, error)
	Advance(id string, from, to, executedAt time.Time) (bool, error)
	SetActive(id string, active bool) error
}

type recurringRepository struct {
	db *gorm.DB
}

func NewRecurringRepository(db *gorm.DB) RecurringRepository {
	return &recurringRepository{db: db}
}

func (r *recurringRepository) Create(rule *models.RecurringRule) error {
	if err := r.db.Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create recurring rule: %w", err)
	}
	return nil
}

func (r *recurringRepository) GetByID(id string) (*models.RecurringRule, error) {
	var rule models.RecurringRule
	if err := r.db.First(&rule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get recurring rule: %w", err)
	}
	return &rule, nil
}

func (r *recurringRepository) List(activeOnly bool) ([]*models.RecurringRule, error) {
	var rules []*models.RecurringRule
	q := r.db.Order("created_at DESC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list recurring rules: %w", err)
	}
	return rules, nil
}

func (r *recurringRepository) Due(now time.Time) ([]*models.RecurringRule, error) {
	var rules []*models.RecurringRule
	err := r.db.
		Where("is_active = ? AND next_execution_at <= ?", true, now).
		Where("end_date IS NULL OR end_date >= ?", now).
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select due recurring rules: %w", err)
	}
	return rules, nil
}

func (r *recurringRepository) Advance(id string, from, to, executedAt time.Time) (bool, error) {
	result := r.db.Model(&models.RecurringRule{}).
		Where("id = ? AND is_active = ? AND next_execution_at = ?", id, true, from).
		Updates(map[string]interface{}{
			"next_execution_at": to,
			"last_executed_at":  executedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to advance recurring rule: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *recurringRepository) SetActive(id string, active bool) error {
	result := r.db.Model(&models.RecurringRule{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to update recurring rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}
