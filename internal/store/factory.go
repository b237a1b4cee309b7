package store

import "context"

// Stores bundles the entity stores of one backend.
type Stores struct {
	backend        string
	investigations InvestigationStore
	actions        ActionStore
	close          func() error
}

func (s *Stores) Backend() string {
	return s.backend
}

func (s *Stores) Investigations() InvestigationStore {
	return s.investigations
}

func (s *Stores) Actions() ActionStore {
	return s.actions
}

// Ping checks the backend is reachable. Backends without a remote side always succeed.
func (s *Stores) Ping(ctx context.Context) error {
	if p, ok := s.investigations.(interface{ ping(context.Context) error }); ok {
		return p.ping(ctx)
	}
	return nil
}

// Close releases backend resources owned by the stores. Clients passed in by
// the caller (pgx pool, redis client) are left open.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
