// Package storage - postgres.go
// PostgreSQL implementation of KVStore, for hosts that keep saves off the local disk.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// OpenPostgres connects with lib/pq and creates the save table.
func OpenPostgres(dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns / 2)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS cookie_saves (
		save_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schemas: %w", err)
	}
	return db, nil
}

// PostgresStore implements KVStore using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on an open database.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get reads the payload stored under key.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM cookie_saves WHERE save_key = $1`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read %q: %w", key, describePQ(err))
	}
	return payload, nil
}

// Set upserts the payload under key.
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO cookie_saves (save_key, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (save_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, describePQ(err))
	}
	return nil
}

// Delete removes key.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cookie_saves WHERE save_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, describePQ(err))
	}
	return nil
}

// describePQ names the SQLSTATE of server errors and maps out-of-space classes to ErrQuotaExceeded.
func describePQ(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code.Class() {
	case "53", "54": // insufficient resources, program limit exceeded
		return fmt.Errorf("%w: postgres %s (%s): %v", ErrQuotaExceeded, pqErr.Code.Name(), pqErr.Code, err)
	}
	return fmt.Errorf("postgres %s (%s): %w", pqErr.Code.Name(), pqErr.Code, err)
}
