package store

import (
	"context"
	"errors"

	"factoryops.app/assistant/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// InvestigationStore persists investigations. Put is an atomic upsert of the
// whole entity; readers never observe a partial write. Concurrent Puts to the
// same id are last-write-wins.
type InvestigationStore interface {
	Get(ctx context.Context, id string) (*model.Investigation, error)
	Put(ctx context.Context, inv model.Investigation) error
	// List returns matches ordered by creation time, oldest first.
	List(ctx context.Context, filter model.InvestigationFilter) ([]model.Investigation, error)
}

// ActionStore persists actions with the same guarantees as InvestigationStore.
type ActionStore interface {
	Get(ctx context.Context, id string) (*model.Action, error)
	Put(ctx context.Context, action model.Action) error
	List(ctx context.Context, filter model.ActionFilter) ([]model.Action, error)
}
