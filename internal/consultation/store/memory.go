package store

import (
	"context"
	"sort"
	"sync"

	"covergate/internal/consultation/models"
	id "covergate/pkg/domain"
	"covergate/pkg/platform/sentinel"
)

// InMemoryStore keeps consultation requests in a map guarded by a mutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.ConsultationID]*models.ConsultationRequest
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.ConsultationID]*models.ConsultationRequest)}
}

func (s *InMemoryStore) Create(_ context.Context, request *models.ConsultationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *request
	s.requests[request.ID] = &cp
	return nil
}

func (s *InMemoryStore) Save(_ context.Context, request *models.ConsultationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[request.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *request
	s.requests[request.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.ConsultationID) (*models.ConsultationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *request
	return &cp, nil
}

func (s *InMemoryStore) Delete(_ context.Context, requestID id.ConsultationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[requestID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.requests, requestID)
	return nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*models.ConsultationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ConsultationRequest, 0, len(s.requests))
	for _, request := range s.requests {
		cp := *request
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
