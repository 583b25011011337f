// Package handler exposes the owner-facing notification endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"covergate/internal/notification/models"
	"covergate/internal/transport/http/shared"
	id "covergate/pkg/domain"
	"covergate/pkg/requestcontext"
)

// Service is the notification service interface the handler consumes.
type Service interface {
	List(ctx context.Context, userID id.UserID) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID id.UserID) error
	Delete(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error
}

// Handler serves the notification read-state endpoints. All routes are
// owner-scoped; a foreign notification ID comes back as 404, never 403, so
// the API does not leak which IDs exist.
type Handler struct {
	notifications Service
	logger        *slog.Logger
}

func New(notifications Service, logger *slog.Logger) *Handler {
	return &Handler{notifications: notifications, logger: logger}
}

// Register mounts the notification routes. The router passed in already
// carries the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Put("/notifications/mark-all-read", h.handleMarkAllRead)
	r.Put("/notifications/{id}/read", h.handleMarkRead)
	r.Delete("/notifications/{id}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notifications, err := h.notifications.List(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list notifications",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	shared.WriteJSON(w, http.StatusOK, notifications)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	n, err := h.notifications.MarkRead(ctx, requestcontext.UserID(ctx), notificationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, n)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.notifications.MarkAllRead(ctx, requestcontext.UserID(ctx)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.notifications.Delete(ctx, requestcontext.UserID(ctx), notificationID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
