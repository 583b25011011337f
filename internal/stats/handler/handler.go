// Package handler exposes the admin dashboard endpoint.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	statsservice "covergate/internal/stats/service"
	"covergate/internal/transport/http/shared"
)

// Service is the stats service interface the handler consumes.
type Service interface {
	Dashboard(ctx context.Context) (*statsservice.Dashboard, error)
}

type Handler struct {
	stats Service
}

func New(stats Service) *Handler {
	return &Handler{stats: stats}
}

// RegisterAdmin mounts the dashboard route.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/stats/dashboard", h.handleDashboard)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.stats.Dashboard(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, dashboard)
}
