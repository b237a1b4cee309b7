package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"factoryops.app/assistant/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS investigations (
	id          TEXT PRIMARY KEY,
	machine_id  TEXT NOT NULL DEFAULT '',
	supplier_id TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	body        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS investigations_machine_idx ON investigations (machine_id);
CREATE TABLE IF NOT EXISTS actions (
	id         TEXT PRIMARY KEY,
	machine_id TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	body       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS actions_machine_idx ON actions (machine_id);
`

// NewSQLiteStores opens (or creates) a SQLite database at path. Use
// ":memory:" for a throwaway database.
func NewSQLiteStores(ctx context.Context, path string) (*Stores, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &Stores{
		backend:        "sqlite",
		investigations: &sqliteInvestigationStore{db: db},
		actions:        &sqliteActionStore{db: db},
		close:          db.Close,
	}, nil
}

type sqliteInvestigationStore struct {
	db *sql.DB
}

func (s *sqliteInvestigationStore) ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqliteInvestigationStore) Get(ctx context.Context, id string) (*model.Investigation, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM investigations WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get investigation %s: %w", id, err)
	}

	var inv model.Investigation
	if err := json.Unmarshal([]byte(body), &inv); err != nil {
		return nil, fmt.Errorf("decode investigation %s: %w", id, err)
	}
	return &inv, nil
}

func (s *sqliteInvestigationStore) Put(ctx context.Context, inv model.Investigation) error {
	body, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode investigation %s: %w", inv.ID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO investigations (id, machine_id, supplier_id, status, created_at, body)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE
		 SET machine_id = excluded.machine_id,
		     supplier_id = excluded.supplier_id,
		     status = excluded.status,
		     body = excluded.body`,
		inv.ID, inv.MachineID, inv.SupplierID, string(inv.Status), inv.CreatedAt.UnixNano(), string(body),
	)
	if err != nil {
		return fmt.Errorf("put investigation %s: %w", inv.ID, err)
	}
	return nil
}

func (s *sqliteInvestigationStore) List(ctx context.Context, filter model.InvestigationFilter) ([]model.Investigation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM investigations
		 WHERE (? = '' OR machine_id = ?)
		   AND (? = '' OR supplier_id = ?)
		   AND (? = '' OR status = ?)
		 ORDER BY created_at, id`,
		filter.MachineID, filter.MachineID,
		filter.SupplierID, filter.SupplierID,
		string(filter.Status), string(filter.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("list investigations: %w", err)
	}
	defer rows.Close()

	result := []model.Investigation{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan investigation: %w", err)
		}
		var inv model.Investigation
		if err := json.Unmarshal([]byte(body), &inv); err != nil {
			return nil, fmt.Errorf("decode investigation: %w", err)
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

type sqliteActionStore struct {
	db *sql.DB
}

func (s *sqliteActionStore) Get(ctx context.Context, id string) (*model.Action, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM actions WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get action %s: %w", id, err)
	}

	var a model.Action
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return nil, fmt.Errorf("decode action %s: %w", id, err)
	}
	return &a, nil
}

func (s *sqliteActionStore) Put(ctx context.Context, a model.Action) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode action %s: %w", a.ID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO actions (id, machine_id, created_at, body)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE
		 SET machine_id = excluded.machine_id, body = excluded.body`,
		a.ID, a.MachineID, a.CreatedAt.UnixNano(), string(body),
	)
	if err != nil {
		return fmt.Errorf("put action %s: %w", a.ID, err)
	}
	return nil
}

func (s *sqliteActionStore) List(ctx context.Context, filter model.ActionFilter) ([]model.Action, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM actions
		 WHERE (? = '' OR machine_id = ?)
		 ORDER BY created_at, id`,
		filter.MachineID, filter.MachineID,
	)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	result := []model.Action{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		var a model.Action
		if err := json.Unmarshal([]byte(body), &a); err != nil {
			return nil, fmt.Errorf("decode action: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
