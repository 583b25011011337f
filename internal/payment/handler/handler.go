// Package handler exposes the payment gateway endpoints. The callback and
// status endpoints are public: the gateway calls them without our tokens.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	paymentservice "covergate/internal/payment/service"
	"covergate/internal/transport/http/shared"
	dErrors "covergate/pkg/domain-errors"
)

// Service is the payment service interface the handler consumes.
type Service interface {
	CreateOrder(ctx context.Context, contractNumber string) (map[string]any, error)
	HandleCallback(ctx context.Context, rawData, mac string) paymentservice.CallbackResult
	PollStatus(ctx context.Context, contractNumber string) (map[string]any, error)
}

// Handler serves the payment endpoints.
type Handler struct {
	payments Service
}

func New(payments Service) *Handler {
	return &Handler{payments: payments}
}

// Register mounts the payment routes. The caller wraps the router with the
// public rate limit; none of these routes sees the auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/payment/zalopay-test", h.handleCreateOrder)
	r.Post("/payment/callback", h.handleCallback)
	r.Post("/payment/check-status", h.handlePollStatus)
}

type orderRequest struct {
	ContractNumber string `json:"contract_number"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ContractNumber == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "contract_number is required"))
		return
	}
	body, err := h.payments.CreateOrder(r.Context(), req.ContractNumber)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, body)
}

type callbackRequest struct {
	Data string `json:"data"`
	MAC  string `json:"mac"`
}

// handleCallback always answers 200: the result codes inside the body are
// the gateway's protocol, not HTTP's.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteJSON(w, http.StatusOK, paymentservice.CallbackResult{
			ReturnCode:    0,
			ReturnMessage: "invalid callback body",
		})
		return
	}
	result := h.payments.HandleCallback(r.Context(), req.Data, req.MAC)
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePollStatus(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ContractNumber == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "contract_number is required"))
		return
	}
	body, err := h.payments.PollStatus(r.Context(), req.ContractNumber)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, body)
}
