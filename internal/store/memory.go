package store

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"factoryops.app/assistant/internal/model"
)

// NewMemoryStores returns process-local stores guarded by a mutex.
func NewMemoryStores() *Stores {
	return &Stores{
		backend:        "memory",
		investigations: &memoryInvestigationStore{items: make(map[string]model.Investigation)},
		actions:        &memoryActionStore{items: make(map[string]model.Action)},
	}
}

type memoryInvestigationStore struct {
	mu    sync.RWMutex
	items map[string]model.Investigation
}

func (s *memoryInvestigationStore) Get(_ context.Context, id string) (*model.Investigation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	inv = cloneInvestigation(inv)
	return &inv, nil
}

func (s *memoryInvestigationStore) Put(_ context.Context, inv model.Investigation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[inv.ID] = cloneInvestigation(inv)
	return nil
}

func (s *memoryInvestigationStore) List(_ context.Context, filter model.InvestigationFilter) ([]model.Investigation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Investigation, 0, len(s.items))
	for _, inv := range s.items {
		if filter.Match(inv) {
			result = append(result, cloneInvestigation(inv))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

type memoryActionStore struct {
	mu    sync.RWMutex
	items map[string]model.Action
}

func (s *memoryActionStore) Get(_ context.Context, id string) (*model.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	a = cloneAction(a)
	return &a, nil
}

func (s *memoryActionStore) Put(_ context.Context, a model.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[a.ID] = cloneAction(a)
	return nil
}

func (s *memoryActionStore) List(_ context.Context, filter model.ActionFilter) ([]model.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Action, 0, len(s.items))
	for _, a := range s.items {
		if filter.Match(a) {
			result = append(result, cloneAction(a))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Stored values must not share slices, maps, or pointers with callers.

func cloneInvestigation(inv model.Investigation) model.Investigation {
	inv.Findings = slices.Clone(inv.Findings)
	inv.Hypotheses = slices.Clone(inv.Hypotheses)
	return inv
}

func cloneAction(a model.Action) model.Action {
	a.BaselineMetrics = maps.Clone(a.BaselineMetrics)
	if a.ActualImpact != nil {
		v := *a.ActualImpact
		a.ActualImpact = &v
	}
	if a.FollowUpDate != nil {
		v := *a.FollowUpDate
		a.FollowUpDate = &v
	}
	return a
}
