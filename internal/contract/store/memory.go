package store

import (
	"context"
	"sort"
	"sync"

	"covergate/internal/contract/models"
	id "covergate/pkg/domain"
	"covergate/pkg/platform/sentinel"
)

// InMemoryStore keeps contracts in a map guarded by a mutex. Used by tests
// and demo runs; behavior matches the postgres store, including the
// one-contract-per-application conflict.
type InMemoryStore struct {
	mu        sync.RWMutex
	contracts map[id.ContractID]*models.Contract
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{contracts: make(map[id.ContractID]*models.Contract)}
}

func (s *InMemoryStore) Create(_ context.Context, contract *models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.contracts {
		if existing.ApplicationID == contract.ApplicationID {
			return sentinel.ErrConflict
		}
	}
	s.contracts[contract.ID] = cloneContract(contract)
	return nil
}

func (s *InMemoryStore) Save(_ context.Context, contract *models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contracts[contract.ID] = cloneContract(contract)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, contractID id.ContractID) (*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contract, ok := s.contracts[contractID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneContract(contract), nil
}

func (s *InMemoryStore) FindByApplication(_ context.Context, applicationID id.ApplicationID) (*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, contract := range s.contracts {
		if contract.ApplicationID == applicationID {
			return cloneContract(contract), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByNumber(_ context.Context, contractNumber string) (*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, contract := range s.contracts {
		if contract.ContractNumber == contractNumber {
			return cloneContract(contract), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Delete(_ context.Context, contractID id.ContractID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contracts[contractID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.contracts, contractID)
	return nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Contract, 0, len(s.contracts))
	for _, contract := range s.contracts {
		out = append(out, cloneContract(contract))
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Contract
	for _, contract := range s.contracts {
		if contract.UserID == userID {
			out = append(out, cloneContract(contract))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(contracts []*models.Contract) {
	sort.Slice(contracts, func(i, j int) bool {
		return contracts[i].CreatedAt.After(contracts[j].CreatedAt)
	})
}

// cloneContract deep-copies so callers cannot mutate store state through
// shared maps and slices.
func cloneContract(contract *models.Contract) *models.Contract {
	cp := *contract
	if contract.PaymentDetails != nil {
		cp.PaymentDetails = make(models.PaymentDetails, len(contract.PaymentDetails))
		for k, v := range contract.PaymentDetails {
			cp.PaymentDetails[k] = v
		}
	}
	if contract.Cancellation != nil {
		canc := *contract.Cancellation
		cp.Cancellation = &canc
	}
	if contract.Claims != nil {
		cp.Claims = make([]models.Claim, len(contract.Claims))
		for i, claim := range contract.Claims {
			claim.Attachments = append([]string(nil), claim.Attachments...)
			cp.Claims[i] = claim
		}
	}
	return &cp
}
