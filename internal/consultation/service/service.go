// Package service implements the consultation request lifecycle: a public
// intake and the admin follow-up operations.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"covergate/internal/consultation/models"
	id "covergate/pkg/domain"
	dErrors "covergate/pkg/domain-errors"
	"covergate/pkg/platform/sentinel"
	"covergate/pkg/requestcontext"
)

// Store persists consultation requests.
type Store interface {
	Create(ctx context.Context, request *models.ConsultationRequest) error
	Save(ctx context.Context, request *models.ConsultationRequest) error
	FindByID(ctx context.Context, requestID id.ConsultationID) (*models.ConsultationRequest, error)
	Delete(ctx context.Context, requestID id.ConsultationID) error
	// ListAll returns every consultation request, newest first.
	ListAll(ctx context.Context) ([]*models.ConsultationRequest, error)
}

// Service handles consultation requests.
type Service struct {
	requests Store
}

func New(requests Store) *Service {
	return &Service{requests: requests}
}

// CreateInput carries the fields of the public intake form.
type CreateInput struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	ProductID     id.ProductID
	Note          string
}

// Create records a new consultation request. Name and phone are required;
// everything else is optional.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.ConsultationRequest, error) {
	if strings.TrimSpace(in.CustomerName) == "" || strings.TrimSpace(in.CustomerPhone) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "customer name and phone are required")
	}

	now := requestcontext.Now(ctx)
	request := &models.ConsultationRequest{
		ID:            id.ConsultationID(uuid.New()),
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerPhone: strings.TrimSpace(in.CustomerPhone),
		CustomerEmail: strings.TrimSpace(in.CustomerEmail),
		ProductID:     in.ProductID,
		Note:          in.Note,
		Status:        models.StatusNew,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create consultation request")
	}
	return request, nil
}

// ListAll returns every consultation request, newest first.
func (s *Service) ListAll(ctx context.Context) ([]*models.ConsultationRequest, error) {
	requests, err := s.requests.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consultation requests")
	}
	return requests, nil
}

// SetStatus moves a request through the follow-up pipeline.
func (s *Service) SetStatus(ctx context.Context, requestID id.ConsultationID, status models.Status) (*models.ConsultationRequest, error) {
	request, err := s.findRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	request.Status = status
	request.UpdatedAt = requestcontext.Now(ctx)
	if err := s.requests.Save(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update consultation request")
	}
	return request, nil
}

// Delete removes a handled request.
func (s *Service) Delete(ctx context.Context, requestID id.ConsultationID) error {
	err := s.requests.Delete(ctx, requestID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "consultation request not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete consultation request")
	}
	return nil
}

func (s *Service) findRequest(ctx context.Context, requestID id.ConsultationID) (*models.ConsultationRequest, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "consultation request not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consultation request")
	}
	return request, nil
}
