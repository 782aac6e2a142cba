/**
 * @description
 * This file provides the PostgreSQL backend of the notification cache. The
 * list is kept as one JSONB document per cache key so several gateways can
 * share a database without clashing.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/transfa/wallet-gateway/internal/domain"
)

// querier is the subset of *pgxpool.Pool the cache needs.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const createNotificationCacheTable = `
CREATE TABLE IF NOT EXISTS wallet_notification_cache (
	cache_key  TEXT PRIMARY KEY,
	payload    JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresNotificationCache is a NotificationCache backed by PostgreSQL.
type PostgresNotificationCache struct {
	db  querier
	key string
}

// NewPostgresNotificationCache creates a cache for key. Call EnsureSchema once
// at startup.
func NewPostgresNotificationCache(db querier, key string) *PostgresNotificationCache {
	if key == "" {
		key = "wallet"
	}
	return &PostgresNotificationCache{db: db, key: key}
}

// EnsureSchema creates the cache table when it does not exist yet.
func (c *PostgresNotificationCache) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, createNotificationCacheTable); err != nil {
		return fmt.Errorf("failed to create notification cache table: %w", err)
	}
	return nil
}

func (c *PostgresNotificationCache) Load(ctx context.Context) ([]domain.Notification, error) {
	var payload []byte
	err := c.db.QueryRow(ctx, `SELECT payload FROM wallet_notification_cache WHERE cache_key = $1`, c.key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications from postgres: %w", err)
	}
	return decodeNotifications(payload)
}

func (c *PostgresNotificationCache) Save(ctx context.Context, notifications []domain.Notification) error {
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	payload, err := json.Marshal(notifications)
	if err != nil {
		return fmt.Errorf("failed to encode notifications: %w", err)
	}

	query := `
		INSERT INTO wallet_notification_cache (cache_key, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (cache_key) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = NOW()`
	if _, err := c.db.Exec(ctx, query, c.key, payload); err != nil {
		return fmt.Errorf("failed to save notifications to postgres: %w", err)
	}
	return nil
}
