package model

import "time"

// NotificationType describes what kind of activity produced a notification.
type NotificationType string

// The notification types that may be recorded.
const (
	NotificationCreate  NotificationType = "create"
	NotificationUpdate  NotificationType = "update"
	NotificationDelete  NotificationType = "delete"
	NotificationComment NotificationType = "comment"
)

// NotificationTypes lists every notification type in the order they are registered in the database.
var NotificationTypes = []NotificationType{
	NotificationCreate,
	NotificationUpdate,
	NotificationDelete,
	NotificationComment,
}

// Valid returns true if t is one of the known notification types.
func (t NotificationType) Valid() bool {
	for _, known := range NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Notification represents a single notification to be recorded in the database.
type Notification struct {
	ID          int64            `json:"id"`
	SenderID    int64            `json:"sender_id"`
	RecipientID int64            `json:"recipient_id"`
	Subject     string           `json:"subject"`
	Body        string           `json:"body"`
	Type        NotificationType `json:"type"`
	Timestamp   time.Time        `json:"timestamp"`
}
