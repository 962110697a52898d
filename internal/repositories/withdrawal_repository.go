package repositories

import (
	"errors"
	"fmt"
	"time"

	"custodia/internal/models"

	"gorm.io/gorm"
)

// WithdrawalRepository persists withdrawal requests. The Mark* methods
// are conditional one-row transitions out of pending; a false return
// means zero rows were affected, i.e. the request was already handled.
type WithdrawalRepository interface {
	Create(request *models.WithdrawalRequest) error
	GetByID(id string) (*models.WithdrawalRequest, error)
	ListByStatus(status string, limit int) ([]*models.WithdrawalRequest, error)
	ListByUser(userID string, limit int) ([]*models.WithdrawalRequest, error)
	MarkCompleted(id, adminID, txHash string, at time.Time) (bool, error)
	MarkRejected(id, adminID, reason string, at time.Time) (bool, error)
}

type withdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) WithdrawalRepository {
	return &withdrawalRepository{db: db}
}

func (r *withdrawalRepository) Create(request *models.WithdrawalRequest) error {
	if err := r.db.Create(request).Error; err != nil {
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

func (r *withdrawalRepository) GetByID(id string) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	if err := r.db.First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	return &request, nil
}

func (r *withdrawalRepository) ListByStatus(status string, limit int) ([]*models.WithdrawalRequest, error) {
	var requests []*models.WithdrawalRequest
	q := r.db.Order("requested_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	return requests, nil
}

func (r *withdrawalRepository) ListByUser(userID string, limit int) ([]*models.WithdrawalRequest, error) {
	var requests []*models.WithdrawalRequest
	q := r.db.Where("user_id = ?", userID).Order("requested_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	return requests, nil
}

func (r *withdrawalRepository) MarkCompleted(id, adminID, txHash string, at time.Time) (bool, error) {
	result := r.db.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, models.WithdrawalPending).
		Updates(map[string]interface{}{
			"status":       models.WithdrawalCompleted,
			"admin_id":     adminID,
			"tx_hash":      txHash,
			"processed_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to complete withdrawal request: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *withdrawalRepository) MarkRejected(id, adminID, reason string, at time.Time) (bool, error) {
	result := r.db.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, models.WithdrawalPending).
		Updates(map[string]interface{}{
			"status":           models.WithdrawalRejected,
			"admin_id":         adminID,
			"rejection_reason": reason,
			"processed_at":     at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to reject withdrawal request: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
