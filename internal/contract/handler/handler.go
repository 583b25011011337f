// Package handler exposes the contract lifecycle endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"covergate/internal/contract/models"
	contractservice "covergate/internal/contract/service"
	"covergate/internal/platform/uploads"
	productmodels "covergate/internal/product/models"
	"covergate/internal/transport/http/shared"
	id "covergate/pkg/domain"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

// maxUploadBytes bounds one multipart claim submission.
const maxUploadBytes = 32 << 20

// Service is the contract service interface the handler consumes.
type Service interface {
	Create(ctx context.Context, applicationID id.ApplicationID) (*models.Contract, error)
	ConfirmPaymentManually(ctx context.Context, contractID id.ContractID, caller id.UserID) (*models.Contract, error)
	RequestCancellation(ctx context.Context, contractID id.ContractID, caller id.UserID, reason string) (*models.Contract, error)
	ReviewCancellation(ctx context.Context, contractID id.ContractID, decision models.DecisionStatus, adminResponse string) (*models.Contract, error)
	SubmitClaim(ctx context.Context, contractID id.ContractID, caller id.UserID, reason string, amount int64, attachments []string) (*models.Contract, error)
	ReviewClaim(ctx context.Context, contractID id.ContractID, claimID id.ClaimID, decision models.DecisionStatus, adminResponse string) (*models.Contract, error)
	Override(ctx context.Context, contractID id.ContractID, fields contractservice.OverrideFields) (*models.Contract, error)
	Delete(ctx context.Context, contractID id.ContractID) error
	Get(ctx context.Context, contractID id.ContractID) (*models.Contract, error)
	ListAll(ctx context.Context) ([]*models.Contract, error)
	ListMine(ctx context.Context, userID id.UserID) ([]*models.Contract, error)
}

// ProductCatalog hydrates product summaries at the response boundary.
type ProductCatalog interface {
	FindByID(ctx context.Context, productID id.ProductID) (*productmodels.Product, error)
}

// Handler serves the contract endpoints.
type Handler struct {
	contracts   Service
	products    ProductCatalog
	attachments uploads.Store
	logger      *slog.Logger
}

func New(contracts Service, products ProductCatalog, attachments uploads.Store, logger *slog.Logger) *Handler {
	return &Handler{contracts: contracts, products: products, attachments: attachments, logger: logger}
}

// RegisterUser mounts the holder-facing routes on an authenticated router.
func (h *Handler) RegisterUser(r chi.Router) {
	r.Get("/contracts/my", h.handleListMine)
	r.Post("/contracts/{id}/confirm-payment", h.handleConfirmPayment)
	r.Post("/contracts/{id}/cancel-request", h.handleRequestCancellation)
	r.Post("/contracts/{id}/claim", h.handleSubmitClaim)
}

// RegisterAdmin mounts the admin routes on an admin-gated router.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/contracts", h.handleCreate)
	r.Get("/contracts", h.handleListAll)
	r.Get("/contracts/{id}", h.handleGet)
	r.Put("/contracts/{id}", h.handleOverride)
	r.Delete("/contracts/{id}", h.handleDelete)
	r.Put("/contracts/{id}/cancel-review", h.handleReviewCancellation)
	r.Put("/contracts/{id}/claims/{claimID}", h.handleReviewClaim)
}

type createRequest struct {
	ApplicationID string `json:"application_id"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	applicationID, err := id.ParseApplicationID(req.ApplicationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	contract, err := h.contracts.Create(ctx, applicationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, h.hydrateOne(ctx, contract))
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contracts, err := h.contracts.ListAll(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.hydrate(ctx, contracts))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contracts, err := h.contracts.ListMine(ctx, requestcontext.UserID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.hydrate(ctx, contracts))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, err := contractParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	contract, err := h.contracts.Get(ctx, contractID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.hydrateOne(ctx, contract))
}

func (h *Handler) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, err := contractParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	contract, err := h.contracts.ConfirmPaymentManually(ctx, contractID, requestcontext.UserID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.hydrateOne(ctx, contract))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleRequestCancellation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, err := contractParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.Reason, "1", "2048") {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "reason must be between 1 and 2048 characters"))
		return
	}
	contract, err := h.contracts.RequestCancellation(ctx, contractID, requestcontext.UserID(ctx), req.Reason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.hydrateOne(ctx, contract))
}

type reviewRequest struct {
	Decision      string `json:"decision"`
	AdminResponse string `json:"admin_response"`
}

func (h *Handler) handleReviewCancellation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, err := contractParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	decision, err := models.ParseDecisionStatus(req.Decision)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	contract, err := h.contracts.ReviewCancellation(ctx, contractID, decision, req.AdminResponse)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.hydrateOne(ctx, contract))
}

// handleSubmitClaim accepts a multipart form: a reason field, an optional
// amount field, and any number of file parts named "attachments".
func (h *Handler) handleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, err := contractParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "expected a multipart form"))
		return
	}
	reason := r.FormValue("reason")
	if !govalidator.StringLength(reason, "1", "2048") {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "reason must be between 1 and 2048 characters"))
		return
	}

	var amount int64
	if raw := r.FormValue("amount"); raw != "" {
		amount, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || amount < 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "amount must be a non-negative integer"))
			return
		}
	}

	var attachments []string
	for _, header := range r.MultipartForm.File["attachments"] {
		file, err := header.Open()
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unreadable attachment upload"))
			return
		}
		url, err := h.attachments.Save(ctx, header.Filename, file)
		file.Close()
		if err != nil {
			h.logger.ErrorContext(ctx, "attachment upload failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to store attachment"))
			return
		}
		attachments = append(attachments, url)
	}

	contract, err := h.contracts.SubmitClaim(ctx, contractID, requestcontext.UserID(ctx), reason, amount, attachments)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, h.hydrateOne(ctx, contract))
}

func (h *Handler) handleReviewClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, err := contractParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	decision, err := models.ParseDecisionStatus(req.Decision)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	contract, err := h.contracts.ReviewClaim(ctx, contractID, claimID, decision, req.AdminResponse)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.hydrateOne(ctx, contract))
}

type overrideRequest struct {
	Status         *string    `json:"status"`
	Premium        *int64     `json:"premium"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	ContractNumber *string    `json:"contract_number"`
}

func (h *Handler) handleOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, err := contractParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	fields := contractservice.OverrideFields{
		Premium:        req.Premium,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		ContractNumber: req.ContractNumber,
	}
	if req.Status != nil {
		status, err := models.ParseStatus(*req.Status)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		fields.Status = &status
	}

	contract, err := h.contracts.Override(ctx, contractID, fields)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.hydrateOne(ctx, contract))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contractID, err := contractParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.contracts.Delete(ctx, contractID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func contractParam(r *http.Request) (id.ContractID, error) {
	return id.ParseContractID(chi.URLParam(r, "id"))
}

// contractResponse is the hydrated API shape: the contract plus a product
// summary resolved at the boundary.
type contractResponse struct {
	*models.Contract
	Product *productSummary `json:"product,omitempty"`
}

type productSummary struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (h *Handler) hydrateOne(ctx context.Context, contract *models.Contract) contractResponse {
	out := h.hydrate(ctx, []*models.Contract{contract})
	return out[0]
}

// hydrate resolves product summaries for a page of contracts, fetching each
// distinct product once, concurrently. A catalog miss leaves the summary
// empty rather than failing the listing.
func (h *Handler) hydrate(ctx context.Context, contracts []*models.Contract) []contractResponse {
	distinct := make(map[id.ProductID]struct{}, len(contracts))
	for _, contract := range contracts {
		distinct[contract.ProductID] = struct{}{}
	}

	var mu sync.Mutex
	summaries := make(map[id.ProductID]*productSummary, len(distinct))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for productID := range distinct {
		g.Go(func() error {
			product, err := h.products.FindByID(gctx, productID)
			if err != nil {
				return nil
			}
			mu.Lock()
			summaries[productID] = &productSummary{Name: product.Name, Category: product.Category}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]contractResponse, 0, len(contracts))
	for _, contract := range contracts {
		out = append(out, contractResponse{Contract: contract, Product: summaries[contract.ProductID]})
	}
	return out
}
