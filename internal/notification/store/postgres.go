package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"covergate/internal/notification/models"
	id "covergate/pkg/domain"
	"covergate/pkg/platform/sentinel"
)

// PostgresStore persists notifications in the notifications table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, n *models.Notification) error {
	const query = `
		INSERT INTO notifications (id, user_id, message, link, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(n.ID), uuid.UUID(n.UserID), n.Message, n.Link, n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Notification, error) {
	const query = `
		SELECT id, user_id, message, link, is_read, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		var nid, uid uuid.UUID
		if err := rows.Scan(&nid, &uid, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ID = id.NotificationID(nid)
		n.UserID = id.UserID(uid)
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) (*models.Notification, error) {
	const query = `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, message, link, is_read, created_at`

	var n models.Notification
	var nid, uid uuid.UUID
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(notificationID), uuid.UUID(userID)).
		Scan(&nid, &uid, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	n.ID = id.NotificationID(nid)
	n.UserID = id.UserID(uid)
	return &n, nil
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, userID id.UserID) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(userID)); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error {
	const query = `DELETE FROM notifications WHERE id = $1 AND user_id = $2`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(notificationID), uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
