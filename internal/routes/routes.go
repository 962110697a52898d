// Package routes defines the API routing configuration. It wires
// repositories, services and handlers and applies authentication and
// authorization middleware per group.
package routes

import (
	"custodia/internal/config"
	"custodia/internal/handlers"
	"custodia/internal/middleware"
	"custodia/internal/models"
	"custodia/internal/repositories"
	"custodia/internal/repositories/cache"
	"custodia/internal/services/deposit"
	"custodia/internal/services/exchange"
	"custodia/internal/services/notification"
	"custodia/internal/services/recurring"
	"custodia/internal/services/wallet"
	"custodia/internal/services/withdrawal"
	"custodia/internal/services/yield"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes. walletCache and
// notifier may be nil; the services degrade to uncached and silent.
func SetupRoutes(app *fiber.App, db *gorm.DB, walletCache *cache.WalletCache, notifier notification.Notifier) {
	walletRepo := repositories.NewWalletRepository(db)
	withdrawalRepo := repositories.NewWithdrawalRepository(db)
	depositRepo := repositories.NewDepositRepository(db)
	recurringRepo := repositories.NewRecurringRepository(db)
	investmentRepo := repositories.NewInvestmentRepository(db)
	networkRepo := repositories.NewNetworkRepository(db)

	var walletCacheIface wallet.Cache
	if walletCache != nil {
		walletCacheIface = walletCache
	}
	walletService := wallet.NewService(walletRepo, walletCacheIface)
	withdrawalService := withdrawal.NewService(withdrawalRepo, networkRepo, walletService, notifier, withdrawal.Config{
		DefaultFee:           config.GetFloatEnv("WITHDRAWAL_DEFAULT_FEE", 1),
		DefaultMinWithdrawal: config.GetFloatEnv("WITHDRAWAL_DEFAULT_MIN", 1),
	})
	depositService := deposit.NewService(depositRepo, walletService, notifier)
	exchangeService := exchange.NewService(walletService, notifier)
	recurringService := recurring.NewService(recurringRepo, walletService, notifier)
	yieldService := yield.NewService(investmentRepo, walletService, notifier, config.GetIntEnv("YIELD_WORKERS", 8))

	walletHandler := handlers.NewWalletHandler(walletService)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService)
	depositHandler := handlers.NewDepositHandler(depositService)
	investmentHandler := handlers.NewInvestmentHandler(yieldService)
	adminHandler := handlers.NewAdminHandler(
		walletService,
		withdrawalService,
		depositService,
		exchangeService,
		recurringService,
		yieldService,
		networkRepo,
	)

	authMiddleware := middleware.NewAuthMiddleware(middleware.CapabilityAuthorizer{})

	app.Get("/health", handlers.HealthCheck(walletCache))

	api := app.Group("/api", authMiddleware.Handler)

	wallets := api.Group("/wallets", authMiddleware.Require(models.CapabilityWalletRead))
	wallets.Get("/", walletHandler.ListWallets)
	wallets.Get("/:symbol", walletHandler.GetWallet)
	wallets.Get("/:symbol/ledger", walletHandler.Ledger)
	wallets.Get("/:symbol/reconcile", authMiddleware.AdminOnly, walletHandler.Reconcile)

	api.Post("/withdrawals", authMiddleware.Require(models.CapabilityWalletWrite), withdrawalHandler.Create)
	api.Get("/withdrawals", authMiddleware.Require(models.CapabilityWalletRead), withdrawalHandler.List)

	api.Post("/deposits", authMiddleware.Require(models.CapabilityWalletWrite), depositHandler.Create)
	api.Get("/deposits", authMiddleware.Require(models.CapabilityWalletRead), depositHandler.List)

	api.Get("/plans", investmentHandler.ListPlans)
	api.Post("/investments", authMiddleware.Require(models.CapabilityWalletWrite), investmentHandler.OpenPosition)
	api.Get("/earnings", authMiddleware.Require(models.CapabilityWalletRead), investmentHandler.ListEarnings)

	admin := api.Group("/admin", authMiddleware.AdminOnly)
	admin.Get("/withdrawals", adminHandler.ListWithdrawals)
	admin.Post("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
	admin.Post("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)
	admin.Get("/deposits", adminHandler.ListDeposits)
	admin.Post("/deposits/:id/confirm", adminHandler.ConfirmDeposit)
	admin.Post("/deposits/:id/reject", adminHandler.RejectDeposit)
	admin.Post("/balance/adjust", adminHandler.AdjustBalance)
	admin.Get("/balances/total", adminHandler.TotalBalances)
	admin.Post("/exchange", adminHandler.Exchange)
	admin.Get("/actions", adminHandler.Actions)
	admin.Post("/recurring", adminHandler.CreateRecurringRule)
	admin.Get("/recurring", adminHandler.ListRecurringRules)
	admin.Delete("/recurring/:id", adminHandler.DeactivateRecurringRule)
	admin.Post("/recurring/run", adminHandler.RunRecurring)
	admin.Post("/plans", adminHandler.CreatePlan)
	admin.Post("/yield/run", adminHandler.RunYield)
	admin.Get("/networks", adminHandler.ListNetworks)
	admin.Patch("/networks", adminHandler.UpsertNetwork)
}
