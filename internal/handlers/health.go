package handlers

import (
	"custodia/internal/repositories"
	"custodia/internal/repositories/cache"

	"github.com/gofiber/fiber/v2"
)

func HealthCheck(walletCache *cache.WalletCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbStatus := "connected"
		if sqlDB, err := repositories.DB.DB(); err != nil || sqlDB.Ping() != nil {
			dbStatus = "unavailable"
		}

		redisStatus := "connected"
		if walletCache == nil {
			redisStatus = "disabled"
		} else if err := walletCache.HealthCheck(c.Context()); err != nil {
			redisStatus = "unavailable"
		}

		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"database": dbStatus,
				"redis":    redisStatus,
			},
		})
	}
}
