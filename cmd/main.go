/**
 * @description
 * This is the main entry point for the wallet gateway. It wires the session
 * manager, the backend client and the ledger store, then serves the gateway
 * API until it receives a shutdown signal.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files during local development.
 * - github.com/redis/go-redis/v9: Shared token store, notification cache and attempt limiter.
 * - github.com/jackc/pgx/v5: Optional Postgres notification cache.
 */
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/transfa/wallet-gateway/internal/api"
	"github.com/transfa/wallet-gateway/internal/app"
	"github.com/transfa/wallet-gateway/internal/config"
	"github.com/transfa/wallet-gateway/internal/logging"
	"github.com/transfa/wallet-gateway/internal/store"
	"github.com/transfa/wallet-gateway/pkg/rabbitmq"
	"github.com/transfa/wallet-gateway/pkg/session"
	"github.com/transfa/wallet-gateway/pkg/walletapi"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"failed to load configuration\" err=%v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis ping failed; redis-backed components may be degraded", "error", err)
		}
		pingCancel()
		defer redisClient.Close()
	}

	tokenStore, err := newTokenStore(cfg, redisClient, logger)
	if err != nil {
		logger.Error("failed to initialize token store", "error", err)
		os.Exit(1)
	}

	var dbpool *pgxpool.Pool
	if cfg.NotificationStore == config.NotificationStorePostgres && cfg.DatabaseURL != "" {
		dbpool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("unable to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbpool.Close()
		logger.Info("database connection established")
	}
	notifications := newNotificationCache(ctx, cfg, redisClient, dbpool, logger)

	var publisher rabbitmq.Publisher = &rabbitmq.EventProducerFallback{Logger: logger}
	if cfg.RabbitMQURL != "" {
		if producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.WalletEventExchange, logger); err == nil {
			publisher = producer
		} else {
			logger.Warn("failed to connect to RabbitMQ, using fallback publisher", "error", err)
		}
	}
	defer publisher.Close()

	manager := session.NewManager(tokenStore, logger)
	client, err := walletapi.NewClient(cfg.BackendURL, manager.Transport(nil), cfg.HTTPTimeout())
	if err != nil {
		logger.Error("failed to create wallet backend client", "error", err)
		os.Exit(1)
	}
	manager.SetRefresher(client)

	ledger := app.NewStore(ctx, client, manager, app.Options{
		Notifications:     notifications,
		Publisher:         publisher,
		Logger:            logger,
		TopUpRefreshDelay: cfg.TopUpRefreshDelay(),
		PaymentPublicKey:  cfg.FlutterwavePublicKey,
	})
	defer ledger.Close()
	manager.OnExpired(ledger.HandleSessionExpired)

	if cfg.RabbitMQURL != "" {
		consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("failed to start payment event consumer", "error", err)
		} else {
			defer consumer.Close()
			bindings := map[string]rabbitmq.Handler{app.EventPaymentReceived: ledger.HandlePaymentReceived}
			if err := consumer.ConsumeWithBindings(cfg.WalletEventExchange, cfg.WalletEventQueue, bindings); err != nil {
				logger.Warn("failed to bind payment event consumer", "error", err)
			}
		}
	}

	ledger.Hydrate(ctx)

	syncer := app.NewSyncer(ledger, cfg.SyncSchedule, logger)
	syncer.Start()

	var limiter app.AttemptLimiter = app.NewMemoryAttemptLimiter(cfg.LoginRateLimitPerMinute, time.Minute)
	if redisClient != nil {
		limiter = app.NewRedisAttemptLimiter(redisClient, cfg.RedisKeyPrefix, cfg.LoginRateLimitPerMinute, time.Minute)
	}

	handler := api.NewHandler(ledger, limiter, logger)
	router := api.NewRouter(handler, cfg.AllowedOrigins(), cfg.GatewayAPIKey)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort, "backend", cfg.BackendURL, "session", manager.State())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	select {
	case <-syncer.Stop().Done():
	case <-shutdownCtx.Done():
	}

	logger.Info("server stopped")
}

func newTokenStore(cfg config.Config, redisClient *redis.Client, logger *slog.Logger) (session.TokenStore, error) {
	switch cfg.TokenStore {
	case config.TokenStoreMemory:
		return session.NewMemoryTokenStore(), nil
	case config.TokenStoreRedis:
		if redisClient == nil {
			logger.Warn("TOKEN_STORE=redis without REDIS_URL; falling back to file store")
			break
		}
		return session.NewRedisTokenStore(redisClient, cfg.RedisKeyPrefix, 0), nil
	}

	if cfg.TokenEncryptionKey == "" {
		logger.Warn("TOKEN_ENCRYPTION_KEY not set; session token is stored unencrypted", "path", cfg.TokenStorePath)
	}
	fileStore, err := session.NewFileTokenStore(cfg.TokenStorePath, cfg.TokenEncryptionKey)
	if err != nil {
		return nil, err
	}
	return fileStore, nil
}

func newNotificationCache(ctx context.Context, cfg config.Config, redisClient *redis.Client, dbpool *pgxpool.Pool, logger *slog.Logger) store.NotificationCache {
	switch cfg.NotificationStore {
	case config.NotificationStoreMemory:
		return store.NewMemoryNotificationCache()
	case config.NotificationStoreRedis:
		if redisClient != nil {
			return store.NewRedisNotificationCache(redisClient, cfg.RedisKeyPrefix)
		}
		logger.Warn("NOTIFICATION_STORE=redis without REDIS_URL; falling back to file cache")
	case config.NotificationStorePostgres:
		if dbpool == nil {
			logger.Warn("NOTIFICATION_STORE=postgres without DATABASE_URL; falling back to file cache")
			break
		}
		cache := store.NewPostgresNotificationCache(dbpool, cfg.RedisKeyPrefix)
		if err := cache.EnsureSchema(ctx); err != nil {
			logger.Warn("notification cache schema unavailable; falling back to file cache", "error", err)
			break
		}
		return cache
	}
	return store.NewFileNotificationCache(cfg.NotificationStorePath)
}
