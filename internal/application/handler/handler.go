// Package handler exposes the application lifecycle endpoints.
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

	appmodels "covergate/internal/application/models"
	"covergate/internal/platform/uploads"
	productmodels "covergate/internal/product/models"
	"covergate/internal/transport/http/shared"
	id "covergate/pkg/domain"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/requestcontext"
)

// maxUploadBytes bounds one multipart submission.
const maxUploadBytes = 32 << 20

// Service is the application service interface the handler consumes.
type Service interface {
	Submit(ctx context.Context, applicantID id.UserID, productID id.ProductID, formData map[string]string, documents []appmodels.Document) (*appmodels.Application, error)
	SetStatus(ctx context.Context, applicationID id.ApplicationID, newStatus appmodels.Status, adminNote string) (*appmodels.Application, error)
	Hide(ctx context.Context, applicationID id.ApplicationID, caller id.UserID) error
	AdminDelete(ctx context.Context, applicationID id.ApplicationID) error
	Get(ctx context.Context, applicationID id.ApplicationID) (*appmodels.Application, error)
	ListAll(ctx context.Context) ([]*appmodels.Application, error)
	ListMine(ctx context.Context, applicantID id.UserID) ([]*appmodels.Application, error)
}

// ProductCatalog hydrates product summaries at the response boundary.
type ProductCatalog interface {
	FindByID(ctx context.Context, productID id.ProductID) (*productmodels.Product, error)
}

// Handler serves the application endpoints.
type Handler struct {
	applications Service
	products     ProductCatalog
	documents    uploads.Store
	logger       *slog.Logger
}

func New(applications Service, products ProductCatalog, documents uploads.Store, logger *slog.Logger) *Handler {
	return &Handler{applications: applications, products: products, documents: documents, logger: logger}
}

// RegisterUser mounts the user-facing routes on an authenticated router.
func (h *Handler) RegisterUser(r chi.Router) {
	r.Post("/applications", h.handleSubmit)
	r.Get("/applications/my", h.handleListMine)
	r.Put("/applications/{id}/hide", h.handleHide)
}

// RegisterAdmin mounts the admin routes on an admin-gated router.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/applications", h.handleListAll)
	r.Get("/applications/{id}", h.handleGet)
	r.Put("/applications/{id}", h.handleSetStatus)
	r.Delete("/applications/{id}", h.handleDelete)
}

// handleSubmit accepts a multipart form: a product_id field, any number of
// free-form fields collected as the application data, and file parts named
// "documents".
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "expected a multipart form"))
		return
	}

	productID, err := id.ParseProductID(r.FormValue("product_id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "product_id is required and must be a UUID"))
		return
	}

	formData := make(map[string]string)
	for key, values := range r.MultipartForm.Value {
		if key == "product_id" || len(values) == 0 {
			continue
		}
		if !govalidator.StringLength(values[0], "0", "4096") {
			shared.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "field %q is too long", key))
			return
		}
		formData[key] = values[0]
	}

	var documents []appmodels.Document
	for _, header := range r.MultipartForm.File["documents"] {
		file, err := header.Open()
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unreadable document upload"))
			return
		}
		url, err := h.documents.Save(ctx, header.Filename, file)
		file.Close()
		if err != nil {
			h.logger.ErrorContext(ctx, "document upload failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to store document"))
			return
		}
		documents = append(documents, appmodels.Document{Name: header.Filename, URL: url})
	}

	app, err := h.applications.Submit(ctx, requestcontext.UserID(ctx), productID, formData, documents)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, h.hydrateOne(ctx, app))
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apps, err := h.applications.ListAll(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.hydrate(ctx, apps))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apps, err := h.applications.ListMine(ctx, requestcontext.UserID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.hydrate(ctx, apps))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	app, err := h.applications.Get(ctx, applicationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.hydrateOne(ctx, app))
}

type setStatusRequest struct {
	Status    string `json:"status"`
	AdminNote string `json:"admin_note"`
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	status, err := appmodels.ParseStatus(req.Status)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	app, err := h.applications.SetStatus(ctx, applicationID, status, req.AdminNote)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, h.hydrateOne(ctx, app))
}

func (h *Handler) handleHide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.applications.Hide(ctx, applicationID, requestcontext.UserID(ctx)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.applications.AdminDelete(ctx, applicationID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// applicationResponse is the hydrated API shape: the application plus a
// product summary resolved at the boundary. Hydration never happens inside
// domain logic.
type applicationResponse struct {
	*appmodels.Application
	Product *productSummary `json:"product,omitempty"`
}

type productSummary struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (h *Handler) hydrateOne(ctx context.Context, app *appmodels.Application) applicationResponse {
	out := h.hydrate(ctx, []*appmodels.Application{app})
	return out[0]
}

// hydrate resolves product summaries for a page of applications, fetching
// each distinct product once, concurrently. A catalog miss leaves the
// summary empty rather than failing the listing.
func (h *Handler) hydrate(ctx context.Context, apps []*appmodels.Application) []applicationResponse {
	distinct := make(map[id.ProductID]struct{}, len(apps))
	for _, app := range apps {
		distinct[app.ProductID] = struct{}{}
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

	out := make([]applicationResponse, 0, len(apps))
	for _, app := range apps {
		out = append(out, applicationResponse{Application: app, Product: summaries[app.ProductID]})
	}
	return out
}
