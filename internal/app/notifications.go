package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/transfa/wallet-gateway/internal/domain"
)

// AddNotification queues a notification at the front of the list and persists
// the list. An empty type defaults to success.
func (s *Store) AddNotification(message string, kind domain.NotificationType, opts domain.NotificationOptions) domain.Notification {
	if kind == "" {
		kind = domain.NotificationSuccess
	}
	n := domain.Notification{
		ID:         uuid.NewString(),
		Type:       kind,
		Title:      opts.Title,
		Message:    message,
		Time:       opts.Time,
		Icon:       opts.Icon,
		Persistent: opts.Persistent,
	}
	if n.Title == "" {
		n.Title = "Notification"
	}
	if n.Time == "" {
		n.Time = s.now().Format(time.TimeOnly)
	}

	s.mu.Lock()
	s.notifications = append([]domain.Notification{n}, s.notifications...)
	s.mu.Unlock()

	s.persistNotifications()
	s.notify()
	return n
}

// Notifications returns the queue, newest first.
func (s *Store) Notifications() []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Notification{}, s.notifications...)
}

// MarkAllAsRead flags every queued notification as read.
func (s *Store) MarkAllAsRead() {
	s.mu.Lock()
	updated := make([]domain.Notification, len(s.notifications))
	for i, n := range s.notifications {
		n.Read = true
		updated[i] = n
	}
	s.notifications = updated
	s.mu.Unlock()

	s.persistNotifications()
	s.notify()
}

// ClearNotifications empties the queue.
func (s *Store) ClearNotifications() {
	s.mu.Lock()
	s.notifications = nil
	s.mu.Unlock()

	s.persistNotifications()
	s.notify()
}

// persistNotifications writes the current queue. Saves are serialized so the
// cache never ends up holding an older list than the last change.
func (s *Store) persistNotifications() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	list := s.Notifications()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.cache.Save(ctx, list); err != nil {
		s.logger.Warn("failed to persist notifications", "error", err)
	}
}
