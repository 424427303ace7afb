// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package endpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/streamrx/internal/persistence/sqlite"
)

const sqliteSchemaVersion = 1

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS endpoint (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	address TEXT NOT NULL,
	port INTEGER NOT NULL,
	saved_at_ms INTEGER NOT NULL
);
`

// SqliteStore keeps the endpoint in a single-row table.
type SqliteStore struct {
	DB *sql.DB
}

func NewSqliteStore(ctx context.Context, dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("create endpoint db dir: %w", err)
	}
	db, err := sqlite.Open(ctx, dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, sqliteSchemaVersion, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("endpoint store: migration failed: %w", err)
	}
	return &SqliteStore{DB: db}, nil
}

func (s *SqliteStore) Load(ctx context.Context) (Endpoint, bool, error) {
	var (
		ep      Endpoint
		savedMS int64
	)
	err := s.DB.QueryRowContext(ctx, `SELECT address, port, saved_at_ms FROM endpoint WHERE id = 1`).
		Scan(&ep.Address, &ep.Port, &savedMS)
	if errors.Is(err, sql.ErrNoRows) {
		return Endpoint{}, false, nil
	}
	if err != nil {
		return Endpoint{}, false, err
	}
	ep.SavedAt = time.UnixMilli(savedMS).UTC()
	return ep, true, nil
}

func (s *SqliteStore) Save(ctx context.Context, ep Endpoint) error {
	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO endpoint (id, address, port, saved_at_ms) VALUES (1, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		address = excluded.address,
		port = excluded.port,
		saved_at_ms = excluded.saved_at_ms
	`, ep.Address, ep.Port, ep.SavedAt.UnixMilli())
	return err
}

// Verify runs a quick integrity check; used by the health endpoint.
func (s *SqliteStore) Verify(ctx context.Context) error {
	return sqlite.Verify(ctx, s.DB, sqlite.QuickCheck)
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}
