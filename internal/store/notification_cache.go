/**
 * @description
 * This file defines the `NotificationCache` contract and its simple backends.
 * Notifications are local-only convenience state, so every backend stores the
 * whole list as one JSON document under a fixed key and callers treat cache
 * failures as non-fatal.
 *
 * @dependencies
 * - internal/domain: The Notification model.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/transfa/wallet-gateway/internal/domain"
)

// NotificationCache persists the notification list between restarts.
type NotificationCache interface {
	Load(ctx context.Context) ([]domain.Notification, error)
	Save(ctx context.Context, notifications []domain.Notification) error
}

// MemoryNotificationCache keeps the list for the lifetime of the process.
type MemoryNotificationCache struct {
	mu    sync.Mutex
	items []domain.Notification
}

func NewMemoryNotificationCache() *MemoryNotificationCache {
	return &MemoryNotificationCache{}
}

func (c *MemoryNotificationCache) Load(ctx context.Context) ([]domain.Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Notification(nil), c.items...), nil
}

func (c *MemoryNotificationCache) Save(ctx context.Context, notifications []domain.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]domain.Notification(nil), notifications...)
	return nil
}

// FileNotificationCache stores the list as a JSON file.
type FileNotificationCache struct {
	path string
	mu   sync.Mutex
}

func NewFileNotificationCache(path string) *FileNotificationCache {
	return &FileNotificationCache{path: path}
}

func (c *FileNotificationCache) Load(ctx context.Context) ([]domain.Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read notification cache: %w", err)
	}
	return decodeNotifications(data)
}

func (c *FileNotificationCache) Save(ctx context.Context, notifications []domain.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(notifications)
	if err != nil {
		return fmt.Errorf("failed to encode notifications: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create notification cache directory: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write notification cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}

func decodeNotifications(data []byte) ([]domain.Notification, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var notifications []domain.Notification
	if err := json.Unmarshal(data, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notification cache: %w", err)
	}
	return notifications, nil
}
