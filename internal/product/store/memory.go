package store

import (
	"context"
	"sync"

	"covergate/internal/product/models"
	id "covergate/pkg/domain"
	"covergate/pkg/platform/sentinel"
)

// InMemoryStore keeps products in a map. Used by tests and demo runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	products map[id.ProductID]*models.Product
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{products: make(map[id.ProductID]*models.Product)}
}

func (s *InMemoryStore) FindByID(_ context.Context, productID id.ProductID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Product, 0, len(s.products))
	for _, p := range s.products {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemoryStore) Seed(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *product
	s.products[product.ID] = &cp
	return nil
}
