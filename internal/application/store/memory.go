package store

import (
	"context"
	"sort"
	"sync"

	"covergate/internal/application/models"
	id "covergate/pkg/domain"
	"covergate/pkg/platform/sentinel"
)

// InMemoryStore keeps applications in a map guarded by a mutex. Used by
// tests and demo runs; behavior matches the postgres store.
type InMemoryStore struct {
	mu           sync.RWMutex
	applications map[id.ApplicationID]*models.Application
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{applications: make(map[id.ApplicationID]*models.Application)}
}

func (s *InMemoryStore) Save(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneApplication(app)
	s.applications[app.ID] = cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.applications[applicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneApplication(app), nil
}

func (s *InMemoryStore) Delete(_ context.Context, applicationID id.ApplicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applications[applicationID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.applications, applicationID)
	return nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Application, 0, len(s.applications))
	for _, app := range s.applications {
		out = append(out, cloneApplication(app))
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) ListByApplicant(_ context.Context, applicantID id.UserID) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Application
	for _, app := range s.applications {
		if app.ApplicantID == applicantID && !app.Hidden {
			out = append(out, cloneApplication(app))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(apps []*models.Application) {
	sort.Slice(apps, func(i, j int) bool {
		return apps[i].CreatedAt.After(apps[j].CreatedAt)
	})
}

// cloneApplication deep-copies so callers cannot mutate store state through
// shared maps and slices.
func cloneApplication(app *models.Application) *models.Application {
	cp := *app
	cp.FormData = make(map[string]string, len(app.FormData))
	for k, v := range app.FormData {
		cp.FormData[k] = v
	}
	cp.Documents = append([]models.Document(nil), app.Documents...)
	return &cp
}
