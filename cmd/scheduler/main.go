// Package main runs the timer that drives recurring credits and the
// daily yield payout. Several instances may run at once; a redis lease
// keeps overlapping runs coarse-grained apart and the services' own
// idempotency keys make any remaining overlap harmless.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"custodia/internal/config"
	"custodia/internal/repositories"
	"custodia/internal/repositories/cache"
	"custodia/internal/services/notification"
	"custodia/internal/services/recurring"
	"custodia/internal/services/wallet"
	"custodia/internal/services/yield"

	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnv()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if !config.IsProduction() {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	log := logrus.WithField("component", "scheduler")

	if err := repositories.InitDB(); err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer func() {
		if err := repositories.CloseDB(); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}()

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	defer redisClient.Close()
	lease := cache.NewLease(redisClient)

	var sink notification.Sink
	if brokers := config.GetSliceEnv("KAFKA_BROKERS"); len(brokers) > 0 {
		sink = notification.NewKafkaSink(brokers, config.GetEnv("KAFKA_NOTIFICATION_TOPIC", "wallet-notifications"))
	} else {
		sink = notification.NewLogSink()
	}
	notifier := notification.NewService(sink)

	walletService := wallet.NewService(repositories.NewWalletRepository(repositories.DB), nil)
	recurringService := recurring.NewService(repositories.NewRecurringRepository(repositories.DB), walletService, notifier)
	yieldService := yield.NewService(repositories.NewInvestmentRepository(repositories.DB), walletService, notifier, config.GetIntEnv("YIELD_WORKERS", 8))

	interval := config.GetDurationEnv("SCHEDULER_INTERVAL", 5*time.Minute)
	yieldHour := config.GetIntEnv("YIELD_RUN_HOUR", 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		cancel()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.WithField("interval", interval.String()).Info("scheduler started")
	runOnce(ctx, log, lease, recurringService, yieldService, interval, yieldHour)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce(ctx, log, lease, recurringService, yieldService, interval, yieldHour)
		}
	}
}

func runOnce(
	ctx context.Context,
	log *logrus.Entry,
	lease *cache.Lease,
	recurringService recurring.Service,
	yieldService yield.Service,
	interval time.Duration,
	yieldHour int,
) {
	now := time.Now().UTC()

	acquired, err := lease.Acquire(ctx, "recurring-run", interval)
	if err != nil {
		log.WithError(err).Warn("recurring lease unavailable, relying on per-rule claims")
		acquired = true
	}
	if acquired {
		report, err := recurringService.ExecuteDue(ctx, now)
		if err != nil {
			log.WithError(err).Error("recurring run failed")
		} else if report.Executed+report.Skipped+report.Failed > 0 {
			log.WithFields(logrus.Fields{
				"executed": report.Executed,
				"skipped":  report.Skipped,
				"failed":   report.Failed,
			}).Info("recurring run")
		}
		_ = lease.Release(ctx, "recurring-run")
	}

	// The daily yield run fires once per UTC day at or after the
	// configured hour. The day-scoped lease is held, not released, so
	// only one instance pays; the earning rows cover the rest.
	if now.Hour() < yieldHour {
		return
	}
	yieldKey := "yield:" + now.Format("2006-01-02")
	acquired, err = lease.Acquire(ctx, yieldKey, 26*time.Hour)
	if err != nil {
		log.WithError(err).Warn("yield lease unavailable, relying on earning rows")
		acquired = true
	}
	if !acquired {
		return
	}
	report, err := yieldService.ProcessDaily(ctx, now, "")
	if err != nil {
		log.WithError(err).Error("yield run failed")
		_ = lease.Release(ctx, yieldKey)
		return
	}
	log.WithFields(logrus.Fields{
		"date":       report.Date,
		"processed":  report.Processed,
		"skipped":    report.Skipped,
		"failed":     report.Failed,
		"total_paid": report.TotalPaid,
	}).Info("daily yield run")
}
