// Package main seeds the baseline reference data: network withdrawal
// terms and the default investment plans. Safe to run repeatedly.
package main

import (
	"custodia/internal/config"
	"custodia/internal/models"
	"custodia/internal/repositories"

	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnv()
	log := logrus.WithField("component", "seed")

	if err := repositories.InitDB(); err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer func() {
		if err := repositories.CloseDB(); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}()

	networkRepo := repositories.NewNetworkRepository(repositories.DB)
	networks := []*models.NetworkConfig{
		{Network: "TRC20", WithdrawalFee: 1, MinWithdrawal: 10, IsActive: true},
		{Network: "ERC20", WithdrawalFee: 5, MinWithdrawal: 20, IsActive: true},
		{Network: "BEP20", WithdrawalFee: 0.5, MinWithdrawal: 5, IsActive: true},
	}
	for _, cfg := range networks {
		if err := networkRepo.Upsert(cfg); err != nil {
			log.WithError(err).WithField("network", cfg.Network).Fatal("failed to seed network")
		}
		log.WithField("network", cfg.Network).Info("network seeded")
	}

	investmentRepo := repositories.NewInvestmentRepository(repositories.DB)
	existing, err := investmentRepo.ListPlans(false)
	if err != nil {
		log.WithError(err).Fatal("failed to list plans")
	}
	if len(existing) > 0 {
		log.Info("plans already seeded")
		return
	}

	plans := []*models.InvestmentPlan{
		{Name: "Starter Daily", Kind: models.PlanKindDaily, DailyReturnPercent: 0.5, MinAmount: 100, DurationDays: 30, Currency: "USDT", IsActive: true},
		{Name: "Growth Daily", Kind: models.PlanKindDaily, DailyReturnPercent: 1.0, MinAmount: 1000, DurationDays: 90, Currency: "USDT", IsActive: true},
		{Name: "Flex Subscription", Kind: models.PlanKindSubscription, AprRate: 12, MinAmount: 50, Currency: "USDT", IsActive: true},
	}
	for _, plan := range plans {
		if err := investmentRepo.CreatePlan(plan); err != nil {
			log.WithError(err).WithField("plan", plan.Name).Fatal("failed to seed plan")
		}
		log.WithField("plan", plan.Name).Info("plan seeded")
	}
}
