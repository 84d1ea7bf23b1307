package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"marketplace-storefront/internal/domain"
)

// schemaStatements create the tables used by PostgresStore.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS storefront;`,
	`CREATE TABLE IF NOT EXISTS storefront.sessions (
		id         TEXT PRIMARY KEY,
		token      TEXT NOT NULL DEFAULT '',
		user_data  JSONB,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS storefront.preferences (
		session_id TEXT NOT NULL,
		name       TEXT NOT NULL,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (session_id, name)
	);`,
}

// PostgresStore implements the SessionStorer and PreferenceStorer interfaces using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the storefront schema and tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: EnsureSchema failed: %w", err)
		}
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// --- SessionStorer Implementation ---

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*domain.SessionRecord, error) {
	query := `
		SELECT id, token, user_data, updated_at
		FROM storefront.sessions
		WHERE id = $1;
	`
	var rec domain.SessionRecord
	var userData sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.Token, &userData, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("store: GetSession failed to scan row: %w", err)
	}
	if userData.Valid && userData.String != "" && userData.String != "null" {
		var u domain.User
		if err := json.Unmarshal([]byte(userData.String), &u); err != nil {
			return nil, fmt.Errorf("store: GetSession failed to decode user: %w", err)
		}
		rec.User = &u
	}
	return &rec, nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, session *domain.SessionRecord) error {
	if session == nil || session.ID == "" {
		return ErrInvalidSession
	}
	var userData []byte
	if session.User != nil {
		b, err := json.Marshal(session.User)
		if err != nil {
			return fmt.Errorf("store: SaveSession failed to encode user: %w", err)
		}
		userData = b
	}

	query := `
		INSERT INTO storefront.sessions (id, token, user_data, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE
		SET token = EXCLUDED.token, user_data = EXCLUDED.user_data, updated_at = CURRENT_TIMESTAMP
		RETURNING updated_at;
	`
	if err := s.db.QueryRowContext(ctx, query, session.ID, session.Token, nullableJSON(userData)).Scan(&session.UpdatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return fmt.Errorf("store: SaveSession failed (%s): %w", pqErr.Code, err)
		}
		return fmt.Errorf("store: SaveSession failed to scan row: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	query := `DELETE FROM storefront.sessions WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteSession failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteSession failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// --- PreferenceStorer Implementation ---

func (s *PostgresStore) GetPreference(ctx context.Context, sessionID, name string) (json.RawMessage, error) {
	query := `
		SELECT value
		FROM storefront.preferences
		WHERE session_id = $1 AND name = $2;
	`
	var value []byte
	if err := s.db.QueryRowContext(ctx, query, sessionID, name).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPreferenceNotFound
		}
		return nil, fmt.Errorf("store: GetPreference failed to scan row: %w", err)
	}
	return json.RawMessage(value), nil
}

func (s *PostgresStore) PutPreference(ctx context.Context, sessionID, name string, value json.RawMessage) error {
	if sessionID == "" {
		return ErrInvalidSession
	}
	query := `
		INSERT INTO storefront.preferences (session_id, name, value, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (session_id, name) DO UPDATE
		SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP;
	`
	if _, err := s.db.ExecContext(ctx, query, sessionID, name, []byte(value)); err != nil {
		return fmt.Errorf("store: PutPreference failed to execute upsert: %w", err)
	}
	return nil
}

// nullableJSON maps an empty document to SQL NULL.
func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
