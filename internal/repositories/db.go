// Package repositories provides the data access layer. It owns the
// database connection and translates gorm errors into package sentinels.
package repositories

import (
	"fmt"
	"time"

	"custodia/internal/config"
	"custodia/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB is the global database instance used across the application.
var DB *gorm.DB

// InitDB opens the PostgreSQL connection, tunes the pool and migrates
// the schema.
func InitDB() error {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		config.GetEnv("DB_HOST", "localhost"),
		config.GetEnv("DB_USER", "postgres"),
		config.GetEnv("DB_PASSWORD", "postgres"),
		config.GetEnv("DB_NAME", "custodia"),
		config.GetEnv("DB_PORT", "5432"),
		config.GetEnv("DB_SSLMODE", "disable"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(config.GetIntEnv("DB_MAX_IDLE_CONNS", 10))
	sqlDB.SetMaxOpenConns(config.GetIntEnv("DB_MAX_OPEN_CONNS", 100))
	sqlDB.SetConnMaxLifetime(config.GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour))
	sqlDB.SetConnMaxIdleTime(config.GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute))

	if err := db.AutoMigrate(
		&models.Wallet{},
		&models.LedgerEntry{},
		&models.WithdrawalRequest{},
		&models.DepositRequest{},
		&models.RecurringRule{},
		&models.InvestmentPlan{},
		&models.Investment{},
		&models.Earning{},
		&models.AdminAction{},
		&models.NetworkConfig{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	DB = db
	return nil
}

// CloseDB closes the underlying sql.DB.
func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
