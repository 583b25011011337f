// Package service implements the notification emitter and the read-state
// operations on a user's notification list.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"covergate/internal/notification/models"
	"covergate/internal/platform/metrics"
	id "covergate/pkg/domain"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/platform/sentinel"
	"covergate/pkg/requestcontext"
)

// Store persists notifications.
type Store interface {
	Append(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID id.UserID) error
	Delete(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error
}

// Service is both the emitter used by the lifecycle components and the
// owner-facing read-state API.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(store Store, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, logger: logger, metrics: m}
}

// Emit appends a notice to the user's list. It is best-effort by design: a
// failed insert is logged and swallowed so a state transition that already
// persisted is never rolled back over its side channel.
func (s *Service) Emit(ctx context.Context, userID id.UserID, message, link string) {
	n := &models.Notification{
		ID:        id.NotificationID(uuid.New()),
		UserID:    userID,
		Message:   message,
		Link:      link,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Append(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "notification emit failed",
			"error", err,
			"user_id", userID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	if s.metrics != nil {
		s.metrics.NotificationsEmitted.Inc()
	}
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID id.UserID) ([]*models.Notification, error) {
	notifications, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead flips the read flag on one of the user's notifications.
func (s *Service) MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) (*models.Notification, error) {
	n, err := s.store.MarkRead(ctx, userID, notificationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
	}
	return n, nil
}

// MarkAllRead flips the read flag on every unread notification of the user.
func (s *Service) MarkAllRead(ctx context.Context, userID id.UserID) error {
	if err := s.store.MarkAllRead(ctx, userID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notifications read")
	}
	return nil
}

// Delete removes one of the user's notifications.
func (s *Service) Delete(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error {
	err := s.store.Delete(ctx, userID, notificationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete notification")
	}
	return nil
}
