package store

import (
	"context"
	"encoding/json"

	"marketplace-storefront/internal/domain"
)

// SessionStorer persists browser sessions (bearer token and cached user).
type SessionStorer interface {
	GetSession(ctx context.Context, id string) (*domain.SessionRecord, error)
	SaveSession(ctx context.Context, session *domain.SessionRecord) error
	DeleteSession(ctx context.Context, id string) error
}

// PreferenceStorer persists named UI preference entries per session.
// Values are opaque JSON documents owned by the UI-state stores.
type PreferenceStorer interface {
	GetPreference(ctx context.Context, sessionID, name string) (json.RawMessage, error)
	PutPreference(ctx context.Context, sessionID, name string, value json.RawMessage) error
}

// Store is a backend that implements both storers.
type Store interface {
	SessionStorer
	PreferenceStorer
	Close() error
}
