package repositories

import (
	"errors"
	"fmt"
	"time"

	"custodia/internal/models"

	"gorm.io/gorm"
)

// DepositRepository persists deposit requests. MarkConfirmed is the
// exactly-once gate for crediting: it transitions pending -> confirmed
// in a single conditional update and reports whether this caller won.
type DepositRepository interface {
	Create(request *models.DepositRequest) error
	GetByID(id string) (*models.DepositRequest, error)
	ListByStatus(status string, limit int) ([]*models.DepositRequest, error)
	ListByUser(userID string, limit int) ([]*models.DepositRequest, error)
	MarkConfirmed(id, adminID string, at time.Time) (bool, error)
	MarkRejected(id, adminID, note string, at time.Time) (bool, error)
}

type depositRepository struct {
	db *gorm.DB
}

func NewDepositRepository(db *gorm.DB) DepositRepository {
	return &depositRepository{db: db}
}

func (r *depositRepository) Create(request *models.DepositRequest) error {
	if err := r.db.Create(request).Error; err != nil {
		return fmt.Errorf("failed to create deposit request: %w", err)
	}
	return nil
}

func (r *depositRepository) GetByID(id string) (*models.DepositRequest, error) {
	var request models.DepositRequest
	if err := r.db.First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get deposit request: %w", err)
	}
	return &request, nil
}

func (r *depositRepository) ListByStatus(status string, limit int) ([]*models.DepositRequest, error) {
	var requests []*models.DepositRequest
	q := r.db.Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list deposit requests: %w", err)
	}
	return requests, nil
}

func (r *depositRepository) ListByUser(userID string, limit int) ([]*models.DepositRequest, error) {
	var requests []*models.DepositRequest
	q := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to list deposit requests: %w", err)
	}
	return requests, nil
}

func (r *depositRepository) MarkConfirmed(id, adminID string, at time.Time) (bool, error) {
	result := r.db.Model(&models.DepositRequest{}).
		Where("id = ? AND status = ?", id, models.DepositPending).
		Updates(map[string]interface{}{
			"status":       models.DepositConfirmed,
			"admin_id":     adminID,
			"confirmed_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to confirm deposit request: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *depositRepository) MarkRejected(id, adminID, note string, at time.Time) (bool, error) {
	result := r.db.Model(&models.DepositRequest{}).
		Where("id = ? AND status = ?", id, models.DepositPending).
		Updates(map[string]interface{}{
			"status":     models.DepositRejected,
			"admin_id":   adminID,
			"admin_note": note,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to reject deposit request: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
