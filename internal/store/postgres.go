package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"factoryops.app/assistant/core/db"
	"factoryops.app/assistant/internal/model"
)

// NewPostgresStores uses the shared pool. The caller runs db.Migrate first
// and owns the pool's lifetime.
func NewPostgresStores(database *db.DB) *Stores {
	return &Stores{
		backend:        "postgres",
		investigations: &pgInvestigationStore{db: database},
		actions:        &pgActionStore{db: database},
	}
}

type pgInvestigationStore struct {
	db *db.DB
}

func (s *pgInvestigationStore) ping(ctx context.Context) error {
	return s.db.Pool().Ping(ctx)
}

func (s *pgInvestigationStore) Get(ctx context.Context, id string) (*model.Investigation, error) {
	var body []byte
	err := s.db.Pool().QueryRow(ctx, `SELECT body FROM investigations WHERE id = $1`, id).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get investigation %s: %w", id, err)
	}

	var inv model.Investigation
	if err := json.Unmarshal(body, &inv); err != nil {
		return nil, fmt.Errorf("decode investigation %s: %w", id, err)
	}
	return &inv, nil
}

func (s *pgInvestigationStore) Put(ctx context.Context, inv model.Investigation) error {
	body, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode investigation %s: %w", inv.ID, err)
	}

	_, err = s.db.Pool().Exec(ctx,
		`INSERT INTO investigations (id, machine_id, supplier_id, status, created_at, updated_at, body)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE
		 SET machine_id = EXCLUDED.machine_id,
		     supplier_id = EXCLUDED.supplier_id,
		     status = EXCLUDED.status,
		     updated_at = EXCLUDED.updated_at,
		     body = EXCLUDED.body`,
		inv.ID, inv.MachineID, inv.SupplierID, string(inv.Status), inv.CreatedAt, inv.UpdatedAt, body,
	)
	if err != nil {
		return fmt.Errorf("put investigation %s: %w", inv.ID, err)
	}
	return nil
}

func (s *pgInvestigationStore) List(ctx context.Context, filter model.InvestigationFilter) ([]model.Investigation, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT body FROM investigations
		 WHERE ($1 = '' OR machine_id = $1)
		   AND ($2 = '' OR supplier_id = $2)
		   AND ($3 = '' OR status = $3)
		 ORDER BY created_at, id`,
		filter.MachineID, filter.SupplierID, string(filter.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("list investigations: %w", err)
	}

	bodies, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("list investigations: %w", err)
	}

	result := make([]model.Investigation, 0, len(bodies))
	for _, body := range bodies {
		var inv model.Investigation
		if err := json.Unmarshal(body, &inv); err != nil {
			return nil, fmt.Errorf("decode investigation: %w", err)
		}
		result = append(result, inv)
	}
	return result, nil
}

type pgActionStore struct {
	db *db.DB
}

func (s *pgActionStore) Get(ctx context.Context, id string) (*model.Action, error) {
	var body []byte
	err := s.db.Pool().QueryRow(ctx, `SELECT body FROM actions WHERE id = $1`, id).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get action %s: %w", id, err)
	}

	var a model.Action
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("decode action %s: %w", id, err)
	}
	return &a, nil
}

func (s *pgActionStore) Put(ctx context.Context, a model.Action) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode action %s: %w", a.ID, err)
	}

	_, err = s.db.Pool().Exec(ctx,
		`INSERT INTO actions (id, machine_id, created_at, body)
		 VALUES ($1, NULLIF($2, ''), $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET machine_id = EXCLUDED.machine_id, body = EXCLUDED.body`,
		a.ID, a.MachineID, a.CreatedAt, body,
	)
	if err != nil {
		return fmt.Errorf("put action %s: %w", a.ID, err)
	}
	return nil
}

func (s *pgActionStore) List(ctx context.Context, filter model.ActionFilter) ([]model.Action, error) {
	rows, err := s.db.Pool().Query(ctx,
		`SELECT body FROM actions
		 WHERE ($1 = '' OR machine_id = $1)
		 ORDER BY created_at, id`,
		filter.MachineID,
	)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}

	bodies, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}

	result := make([]model.Action, 0, len(bodies))
	for _, body := range bodies {
		var a model.Action
		if err := json.Unmarshal(body, &a); err != nil {
			return nil, fmt.Errorf("decode action: %w", err)
		}
		result = append(result, a)
	}
	return result, nil
}
