// Package handler exposes the consultation request endpoints: a public
// intake form plus the admin follow-up routes.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"covergate/internal/consultation/models"
	consultationservice "covergate/internal/consultation/service"
	productmodels "covergate/internal/product/models"
	"covergate/internal/transport/http/shared"
	id "covergate/pkg/domain"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

// Service is the consultation service interface the handler consumes.
type Service interface {
	Create(ctx context.Context, in consultationservice.CreateInput) (*models.ConsultationRequest, error)
	ListAll(ctx context.Context) ([]*models.ConsultationRequest, error)
	SetStatus(ctx context.Context, requestID id.ConsultationID, status models.Status) (*models.ConsultationRequest, error)
	Delete(ctx context.Context, requestID id.ConsultationID) error
}

// ProductCatalog resolves the optional product reference for the admin list.
type ProductCatalog interface {
	FindByID(ctx context.Context, productID id.ProductID) (*productmodels.Product, error)
}

type Handler struct {
	consultations Service
	products      ProductCatalog
	logger        *slog.Logger
}

func New(consultations Service, products ProductCatalog, logger *slog.Logger) *Handler {
	return &Handler{consultations: consultations, products: products, logger: logger}
}

// RegisterPublic mounts the unauthenticated intake route. The router passed
// in carries the public rate limit.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/consultations", h.handleCreate)
}

// RegisterAdmin mounts the follow-up routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/consultations", h.handleListAll)
	r.Put("/consultations/{id}", h.handleSetStatus)
	r.Delete("/consultations/{id}", h.handleDelete)
}

type createRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email"`
	ProductID     string `json:"product_id"`
	Note          string `json:"note"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.CustomerName, "1", "256") {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "customer name is required"))
		return
	}
	if !govalidator.StringLength(req.CustomerPhone, "1", "32") {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "customer phone is required"))
		return
	}
	if req.CustomerEmail != "" && !govalidator.IsEmail(req.CustomerEmail) {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "customer email must be a valid address"))
		return
	}

	in := consultationservice.CreateInput{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Note:          req.Note,
	}
	if req.ProductID != "" {
		productID, err := id.ParseProductID(req.ProductID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		in.ProductID = productID
	}

	request, err := h.consultations.Create(ctx, in)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, request)
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requests, err := h.consultations.ListAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list consultation requests",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.hydrate(ctx, requests))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseConsultationID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	request, err := h.consultations.SetStatus(ctx, requestID, status)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, request)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseConsultationID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.consultations.Delete(ctx, requestID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// consultationResponse is the admin list shape: the request plus the product
// name resolved at the boundary.
type consultationResponse struct {
	*models.ConsultationRequest
	ProductName string `json:"product_name,omitempty"`
}

// hydrate resolves product names for a page of requests, fetching each
// distinct product once, concurrently. A catalog miss leaves the name empty.
func (h *Handler) hydrate(ctx context.Context, requests []*models.ConsultationRequest) []consultationResponse {
	distinct := make(map[id.ProductID]struct{}, len(requests))
	for _, request := range requests {
		if !request.ProductID.IsNil() {
			distinct[request.ProductID] = struct{}{}
		}
	}

	var mu sync.Mutex
	names := make(map[id.ProductID]string, len(distinct))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for productID := range distinct {
		g.Go(func() error {
			product, err := h.products.FindByID(gctx, productID)
			if err != nil {
				return nil
			}
			mu.Lock()
			names[productID] = product.Name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]consultationResponse, 0, len(requests))
	for _, request := range requests {
		out = append(out, consultationResponse{ConsultationRequest: request, ProductName: names[request.ProductID]})
	}
	return out
}
