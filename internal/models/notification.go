package models

import "time"

// NotificationType enumerates the producers feeding the notification feed.
type NotificationType string

const (
	NotificationInvitation   NotificationType = "INVITATION"
	NotificationAnnouncement NotificationType = "ANNOUNCEMENT"
	NotificationTestResult   NotificationType = "TEST_RESULT"
	NotificationSystem       NotificationType = "SYSTEM"
)

// Valid reports whether the type is one of the enumerated producers.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInvitation, NotificationAnnouncement, NotificationTestResult, NotificationSystem:
		return true
	}
	return false
}

// Notification belongs to one account. Read is absorbing: unread flips to
// read either explicitly or implicitly when an invitation's classroom is
// joined, and never flips back.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	UserID      string           `db:"user_id" json:"user_id"`
	Type        NotificationType `db:"type" json:"type"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	ClassroomID *string          `db:"classroom_id" json:"classroom_id,omitempty"`
	ActionURL   *string          `db:"action_url" json:"action_url,omitempty"`
	Read        bool             `db:"read" json:"read"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter captures listing criteria for a user's feed.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
