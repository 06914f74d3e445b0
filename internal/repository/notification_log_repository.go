package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/substitute-finder/internal/models"
)

// NotificationLogRepository appends and reads the notification audit trail.
type NotificationLogRepository struct {
	store *Store
}

// NewNotificationLogRepository creates a new instance of NotificationLogRepository.
func NewNotificationLogRepository(store *Store) *NotificationLogRepository {
	return &NotificationLogRepository{store: store}
}

// Create appends a log row.
func (r *NotificationLogRepository) Create(ctx context.Context, entry *models.NotificationLog) error {
	const query = `INSERT INTO notifications_log (id, user_id, request_id, notification_type, sent_at, status, error_message)
VALUES (:id, :user_id, :request_id, :notification_type, :sent_at, :status, :error_message)`
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return namedExec(ctx, q, query, entry)
	})
	if err != nil {
		return fmt.Errorf("create notification log: %w", err)
	}
	return nil
}

// List returns log rows newest first.
func (r *NotificationLogRepository) List(ctx context.Context, filter models.NotificationLogFilter) ([]models.NotificationLog, error) {
	query := `SELECT id, user_id, request_id, notification_type, sent_at, status, error_message FROM notifications_log`
	var conditions []string
	var args []interface{}
	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.RequestID != nil {
		conditions = append(conditions, "request_id = ?")
		args = append(args, *filter.RequestID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY sent_at DESC, id DESC"

	var logs []models.NotificationLog
	err := r.store.exec(ctx, func(q sqlx.ExtContext) error {
		return selectAll(ctx, q, &logs, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("list notification logs: %w", err)
	}
	return logs, nil
}
