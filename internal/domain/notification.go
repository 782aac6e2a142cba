package domain

// NotificationType drives how a UI renders a notification.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
	NotificationAlert   NotificationType = "alert"
)

// Notification is a local-only, user-facing alert. It is not part of the
// financial ledger and is cached purely for convenience.
type Notification struct {
	ID         string           `json:"id"`
	Type       NotificationType `json:"type"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	Time       string           `json:"time"`
	Icon       string           `json:"icon,omitempty"`
	Persistent bool             `json:"persistent,omitempty"`
	Read       bool             `json:"read"`
}

// NotificationOptions carries the optional presentation fields.
type NotificationOptions struct {
	Title      string
	Time       string
	Icon       string
	Persistent bool
}
