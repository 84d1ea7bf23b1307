package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // registers the postgres driver

	"marketplace-storefront/internal/config"
)

// Open returns the session backend selected by cfg.Session.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch strings.ToLower(cfg.Session.Backend) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("store: failed to open database: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: failed to ping database: %w", err)
		}
		pg := NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return pg, nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis.URL, cfg.Session.IdleTTL)
	default:
		return nil, fmt.Errorf("store: unknown session backend %q", cfg.Session.Backend)
	}
}
