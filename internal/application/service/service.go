// Package service implements the Application Lifecycle: submission, admin
// decisions, user-side hide and admin hard delete.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	appmodels "covergate/internal/application/models"
	"covergate/internal/platform/metrics"
	productmodels "covergate/internal/product/models"
	id "covergate/pkg/domain"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/platform/sentinel"
	"covergate/pkg/requestcontext"
)

// Store persists applications.
type Store interface {
	Save(ctx context.Context, app *appmodels.Application) error
	FindByID(ctx context.Context, applicationID id.ApplicationID) (*appmodels.Application, error)
	Delete(ctx context.Context, applicationID id.ApplicationID) error
	// ListAll returns every application, newest first.
	ListAll(ctx context.Context) ([]*appmodels.Application, error)
	// ListByApplicant returns the applicant's applications, newest first,
	// excluding hidden ones.
	ListByApplicant(ctx context.Context, applicantID id.UserID) ([]*appmodels.Application, error)
}

// ProductCatalog is the read boundary to the external product catalog.
type ProductCatalog interface {
	FindByID(ctx context.Context, productID id.ProductID) (*productmodels.Product, error)
}

// Notifier is the fire-and-forget notification emitter.
type Notifier interface {
	Emit(ctx context.Context, userID id.UserID, message, link string)
}

// Service orchestrates the application lifecycle.
type Service struct {
	applications Store
	products     ProductCatalog
	notifier     Notifier
	metrics      *metrics.Metrics
}

func New(applications Store, products ProductCatalog, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{applications: applications, products: products, notifier: notifier, metrics: m}
}

// Submit creates a new application with status Pending. Multiple pending
// applications per user and product are permitted; duplicates are the review
// workflow's problem, not the system's.
func (s *Service) Submit(ctx context.Context, applicantID id.UserID, productID id.ProductID, formData map[string]string, documents []appmodels.Document) (*appmodels.Application, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up product")
	}

	if formData == nil {
		formData = map[string]string{}
	}
	now := requestcontext.Now(ctx)
	app := &appmodels.Application{
		ID:          id.ApplicationID(uuid.New()),
		ApplicantID: applicantID,
		ProductID:   productID,
		FormData:    formData,
		Documents:   documents,
		Status:      appmodels.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.applications.Save(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save application")
	}
	if s.metrics != nil {
		s.metrics.ApplicationsSubmitted.Inc()
	}
	return app, nil
}

// SetStatus applies an admin decision. The notification text is built from
// the product name and the new status, and is emitted only when the status
// actually changes, so repeating a decision is idempotent on the side
// channel.
func (s *Service) SetStatus(ctx context.Context, applicationID id.ApplicationID, newStatus appmodels.Status, adminNote string) (*appmodels.Application, error) {
	app, err := s.findApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	notify := appmodels.ShouldNotify(app.Status, newStatus)
	var message string
	if notify {
		productName := s.productName(ctx, app.ProductID)
		message = fmt.Sprintf("Your application for %q has been updated to %q.", productName, newStatus.Label())
	}

	app.Status = newStatus
	if adminNote != "" {
		app.AdminNote = adminNote
	}
	app.UpdatedAt = requestcontext.Now(ctx)
	if err := s.applications.Save(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save application")
	}

	if notify {
		s.notifier.Emit(ctx, app.ApplicantID, message, "/my-products")
	}
	return app, nil
}

// Hide sets the applicant's soft-delete flag. Only the applicant may hide
// their own application.
func (s *Service) Hide(ctx context.Context, applicationID id.ApplicationID, caller id.UserID) error {
	app, err := s.findApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.ApplicantID != caller {
		return dErrors.New(dErrors.CodeForbidden, "only the applicant may hide this application")
	}

	app.Hidden = true
	app.UpdatedAt = requestcontext.Now(ctx)
	if err := s.applications.Save(ctx, app); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save application")
	}
	return nil
}

// AdminDelete removes an application permanently. There is no admin-side
// soft delete.
func (s *Service) AdminDelete(ctx context.Context, applicationID id.ApplicationID) error {
	err := s.applications.Delete(ctx, applicationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete application")
	}
	return nil
}

// Get fetches one application. Admin-only at the HTTP layer.
func (s *Service) Get(ctx context.Context, applicationID id.ApplicationID) (*appmodels.Application, error) {
	return s.findApplication(ctx, applicationID)
}

// ListAll returns every application, newest first.
func (s *Service) ListAll(ctx context.Context) ([]*appmodels.Application, error) {
	apps, err := s.applications.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return apps, nil
}

// ListMine returns the caller's applications, newest first, excluding
// hidden ones.
func (s *Service) ListMine(ctx context.Context, applicantID id.UserID) ([]*appmodels.Application, error) {
	apps, err := s.applications.ListByApplicant(ctx, applicantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return apps, nil
}

func (s *Service) findApplication(ctx context.Context, applicationID id.ApplicationID) (*appmodels.Application, error) {
	app, err := s.applications.FindByID(ctx, applicationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return app, nil
}

// productName resolves the product name for notification text, degrading to
// a neutral fallback when the catalog is unreachable: a missing name must
// not block a status decision.
func (s *Service) productName(ctx context.Context, productID id.ProductID) string {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return "your insurance product"
	}
	return product.Name
}
