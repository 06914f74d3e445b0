package models

import (
	"database/sql/driver"
	"fmt"
)

// NotificationKind is the channel a notification went through.
type NotificationKind string

const (
	NotificationInApp NotificationKind = "in_app"
	NotificationEmail NotificationKind = "email"
	NotificationPush  NotificationKind = "push"
	NotificationSMS   NotificationKind = "sms"
)

// ParseNotificationKind converts raw into a known kind.
func ParseNotificationKind(raw string) (NotificationKind, error) {
	switch kind := NotificationKind(raw); kind {
	case NotificationInApp, NotificationEmail, NotificationPush, NotificationSMS:
		return kind, nil
	}
	return "", fmt.Errorf("notification kind %q: %w", raw, ErrUnknownValue)
}

// Scan implements sql.Scanner.
func (k *NotificationKind) Scan(src interface{}) error {
	raw, err := scanEnum("notification kind", src)
	if err != nil {
		return err
	}
	kind, err := ParseNotificationKind(raw)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Value implements driver.Valuer.
func (k NotificationKind) Value() (driver.Value, error) {
	return string(k), nil
}

// NotificationStatus is the outcome of a delivery attempt.
type NotificationStatus string

const (
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
	NotificationPending NotificationStatus = "pending"
)

// ParseNotificationStatus converts raw into a known status.
func ParseNotificationStatus(raw string) (NotificationStatus, error) {
	switch status := NotificationStatus(raw); status {
	case NotificationSent, NotificationFailed, NotificationPending:
		return status, nil
	}
	return "", fmt.Errorf("notification status %q: %w", raw, ErrUnknownValue)
}

// Scan implements sql.Scanner.
func (s *NotificationStatus) Scan(src interface{}) error {
	raw, err := scanEnum("notification status", src)
	if err != nil {
		return err
	}
	status, err := ParseNotificationStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Value implements driver.Valuer.
func (s NotificationStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// NotificationLog is one append-only row per delivery attempt.
type NotificationLog struct {
	ID           string             `db:"id" json:"id"`
	UserID       string             `db:"user_id" json:"user_id"`
	RequestID    string             `db:"request_id" json:"request_id"`
	Kind         NotificationKind   `db:"notification_type" json:"notification_type"`
	SentAt       Timestamp          `db:"sent_at" json:"sent_at"`
	Status       NotificationStatus `db:"status" json:"status"`
	ErrorMessage *string            `db:"error_message" json:"error_message,omitempty"`
}

// NotificationLogFilter narrows log listings.
type NotificationLogFilter struct {
	UserID    *string
	RequestID *string
}

// Notification is a message handed to a delivery sink.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Email     string           `json:"email,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt Timestamp        `json:"created_at"`
}

// NotificationOutcome is the per-recipient result of a fan-out.
type NotificationOutcome struct {
	Status         NotificationStatus `json:"status"`
	NotificationID string             `json:"notification_id,omitempty"`
	LogID          string             `json:"log_id,omitempty"`
	Error          string             `json:"error,omitempty"`
}
