/**
 * @description
 * This package handles the configuration management for the wallet gateway. It
 * uses the Viper library to read configuration from environment variables and
 * an optional .env file.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	TokenStoreFile   = "file"
	TokenStoreRedis  = "redis"
	TokenStoreMemory = "memory"

	NotificationStoreFile     = "file"
	NotificationStoreRedis    = "redis"
	NotificationStorePostgres = "postgres"
	NotificationStoreMemory   = "memory"
)

var ErrMissingBackendURL = errors.New("BACKEND_URL is required")

// Config holds all the configuration variables for the wallet gateway.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	BackendURL               string `mapstructure:"BACKEND_URL"`
	HTTPTimeoutSeconds       int    `mapstructure:"HTTP_TIMEOUT_SECONDS"`
	TokenStore               string `mapstructure:"TOKEN_STORE"`
	TokenStorePath           string `mapstructure:"TOKEN_STORE_PATH"`
	TokenEncryptionKey       string `mapstructure:"TOKEN_ENCRYPTION_KEY"`
	NotificationStore        string `mapstructure:"NOTIFICATION_STORE"`
	NotificationStorePath    string `mapstructure:"NOTIFICATION_STORE_PATH"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisKeyPrefix           string `mapstructure:"REDIS_KEY_PREFIX"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	WalletEventExchange      string `mapstructure:"WALLET_EVENT_EXCHANGE"`
	WalletEventQueue         string `mapstructure:"WALLET_EVENT_QUEUE"`
	FlutterwavePublicKey     string `mapstructure:"FLUTTERWAVE_PUBLIC_KEY"`
	TopUpRefreshDelaySeconds int    `mapstructure:"TOPUP_REFRESH_DELAY_SECONDS"`
	SyncSchedule             string `mapstructure:"SYNC_SCHEDULE"`
	GatewayAPIKey            string `mapstructure:"GATEWAY_API_KEY"`
	CORSAllowedOrigins       string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	LoginRateLimitPerMinute  int    `mapstructure:"LOGIN_RATE_LIMIT_PER_MINUTE"`
	LogLevel                 string `mapstructure:"LOG_LEVEL"`
	LogFormat                string `mapstructure:"LOG_FORMAT"`
}

// LoadConfig reads configuration from environment variables and an optional
// .env file in path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8090")
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	viper.SetDefault("TOKEN_STORE", TokenStoreFile)
	viper.SetDefault("TOKEN_STORE_PATH", ".wallet/session.json")
	viper.SetDefault("NOTIFICATION_STORE", NotificationStoreFile)
	viper.SetDefault("NOTIFICATION_STORE_PATH", ".wallet/notifications.json")
	viper.SetDefault("REDIS_KEY_PREFIX", "wallet")
	viper.SetDefault("WALLET_EVENT_EXCHANGE", "transfa.events")
	viper.SetDefault("WALLET_EVENT_QUEUE", "wallet_gateway.payment_updates")
	viper.SetDefault("TOPUP_REFRESH_DELAY_SECONDS", 2)
	viper.SetDefault("SYNC_SCHEDULE", "@every 5m")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	viper.SetDefault("LOGIN_RATE_LIMIT_PER_MINUTE", 10)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")

	// Bind environment variables explicitly so they appear in Unmarshal.
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("BACKEND_URL", "BACKEND_URL", "VITE_BACKEND_URL")
	_ = viper.BindEnv("HTTP_TIMEOUT_SECONDS")
	_ = viper.BindEnv("TOKEN_STORE")
	_ = viper.BindEnv("TOKEN_STORE_PATH")
	_ = viper.BindEnv("TOKEN_ENCRYPTION_KEY")
	_ = viper.BindEnv("NOTIFICATION_STORE")
	_ = viper.BindEnv("NOTIFICATION_STORE_PATH")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_KEY_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("WALLET_EVENT_EXCHANGE")
	_ = viper.BindEnv("WALLET_EVENT_QUEUE")
	_ = viper.BindEnv("FLUTTERWAVE_PUBLIC_KEY", "FLUTTERWAVE_PUBLIC_KEY", "VITE_FLUTTERWAVE_PUBLIC_KEY")
	_ = viper.BindEnv("TOPUP_REFRESH_DELAY_SECONDS")
	_ = viper.BindEnv("SYNC_SCHEDULE")
	_ = viper.BindEnv("GATEWAY_API_KEY")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("LOGIN_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("LOG_LEVEL")
	_ = viper.BindEnv("LOG_FORMAT")

	// A missing .env file is fine; anything else is logged and ignored.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.BackendURL = strings.TrimRight(strings.TrimSpace(config.BackendURL), "/")
	if config.BackendURL == "" {
		err = ErrMissingBackendURL
		return
	}

	config.TokenStore = strings.ToLower(strings.TrimSpace(config.TokenStore))
	switch config.TokenStore {
	case TokenStoreFile, TokenStoreRedis, TokenStoreMemory:
	default:
		log.Printf("level=warn component=config msg=\"unknown TOKEN_STORE; using file\" value=%q", config.TokenStore)
		config.TokenStore = TokenStoreFile
	}

	config.NotificationStore = strings.ToLower(strings.TrimSpace(config.NotificationStore))
	switch config.NotificationStore {
	case NotificationStoreFile, NotificationStoreRedis, NotificationStorePostgres, NotificationStoreMemory:
	default:
		log.Printf("level=warn component=config msg=\"unknown NOTIFICATION_STORE; using file\" value=%q", config.NotificationStore)
		config.NotificationStore = NotificationStoreFile
	}

	config.TokenEncryptionKey = strings.TrimSpace(config.TokenEncryptionKey)
	if config.TokenEncryptionKey != "" && len(config.TokenEncryptionKey) != 64 {
		log.Printf("level=warn component=config msg=\"TOKEN_ENCRYPTION_KEY must be 64 hex characters; token file will not be encrypted\"")
		config.TokenEncryptionKey = ""
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisKeyPrefix = strings.TrimSpace(config.RedisKeyPrefix)
	if config.RedisKeyPrefix == "" {
		config.RedisKeyPrefix = "wallet"
	}
	config.RabbitMQURL = strings.TrimSpace(config.RabbitMQURL)
	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.GatewayAPIKey = strings.TrimSpace(config.GatewayAPIKey)
	config.SyncSchedule = strings.TrimSpace(config.SyncSchedule)

	if config.HTTPTimeoutSeconds <= 0 {
		config.HTTPTimeoutSeconds = 30
	}
	if config.TopUpRefreshDelaySeconds < 0 {
		log.Printf("level=warn component=config msg=\"negative top-up refresh delay configured; coercing to zero\" delay=%d", config.TopUpRefreshDelaySeconds)
		config.TopUpRefreshDelaySeconds = 0
	}
	if config.LoginRateLimitPerMinute <= 0 {
		config.LoginRateLimitPerMinute = 10
	}

	return
}

// HTTPTimeout is the per-request timeout for backend calls.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// TopUpRefreshDelay is how long to wait for a provider webhook before
// refreshing the ledger after checkout.
func (c Config) TopUpRefreshDelay() time.Duration {
	return time.Duration(c.TopUpRefreshDelaySeconds) * time.Second
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
