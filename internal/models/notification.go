package models

import "time"

// NotificationPriority orders delivery urgency for consumers.
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
)

// Notification is a best-effort message persisted for a person.
type Notification struct {
	ID        string               `db:"id" json:"id"`
	PersonID  string               `db:"person_id" json:"person_id"`
	Type      string               `db:"type" json:"type"`
	Title     string               `db:"title" json:"title"`
	Body      string               `db:"body" json:"body"`
	Priority  NotificationPriority `db:"priority" json:"priority"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}
