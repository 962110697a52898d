// Package main is the entry point for the API server. It initializes
// the database, cache and notifier, sets up the HTTP routes and starts
// the fiber app.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"custodia/internal/config"
	"custodia/internal/repositories"
	"custodia/internal/repositories/cache"
	"custodia/internal/routes"
	"custodia/internal/services/notification"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnv()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if !config.IsProduction() {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithField("component", "server")

	if err := repositories.InitDB(); err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer func() {
		if err := repositories.CloseDB(); err != nil {
			log.WithError(err).Warn("failed to close database")
		}
	}()

	var walletCache *cache.WalletCache
	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	walletCache = cache.NewWalletCache(redisClient)
	defer func() {
		if err := walletCache.Close(); err != nil {
			log.WithError(err).Warn("failed to close redis")
		}
	}()

	var sink notification.Sink
	if brokers := config.GetSliceEnv("KAFKA_BROKERS"); len(brokers) > 0 {
		kafkaSink := notification.NewKafkaSink(brokers, config.GetEnv("KAFKA_NOTIFICATION_TOPIC", "wallet-notifications"))
		defer func() {
			if err := kafkaSink.Close(); err != nil {
				log.WithError(err).Warn("failed to close kafka writer")
			}
		}()
		sink = kafkaSink
	} else {
		sink = notification.NewLogSink()
	}
	notifier := notification.NewService(sink)

	app := fiber.New(fiber.Config{
		AppName: "custodia",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ALLOW_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, repositories.DB, walletCache, notifier)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		_ = app.Shutdown()
	}()

	addr := ":" + config.GetEnv("PORT", "3000")
	log.WithField("addr", addr).Info("starting server")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
