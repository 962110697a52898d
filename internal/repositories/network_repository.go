package repositories

import (
	"errors"
	"fmt"

	"custodia/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NetworkRepository stores the per-network withdrawal fee and minimum.
type NetworkRepository interface {
	Get(network string) (*models.NetworkConfig, error)
	List() ([]*models.NetworkConfig, error)
	Upsert(cfg *models.NetworkConfig) error
}

type networkRepository struct {
	db *gorm.DB
}

func NewNetworkRepository(db *gorm.DB) NetworkRepository {
	return &networkRepository{db: db}
}

func (r *networkRepository) Get(network string) (*models.NetworkConfig, error) {
	var cfg models.NetworkConfig
	if err := r.db.First(&cfg, "network = ?", network).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNetworkNotFound
		}
		return nil, fmt.Errorf("failed to get network config: %w", err)
	}
	return &cfg, nil
}

func (r *networkRepository) List() ([]*models.NetworkConfig, error) {
	var configs []*models.NetworkConfig
	if err := r.db.Order("network").Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("failed to list network configs: %w", err)
	}
	return configs, nil
}

func (r *networkRepository) Upsert(cfg *models.NetworkConfig) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "network"}},
		DoUpdates: clause.AssignmentColumns([]string{"native_symbol", "withdrawal_fee", "min_withdrawal", "is_active", "updated_at"}),
	}).Create(cfg).Error
	if err != nil {
		return fmt.Errorf("failed to upsert network config: %w", err)
	}
	return nil
}
