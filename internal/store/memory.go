package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"marketplace-storefront/internal/domain"
)

// MemoryStore keeps sessions and preferences in process memory.
// It is the default backend for development and single-instance deployments.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]domain.SessionRecord
	preferences map[string]map[string]json.RawMessage
	now         func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]domain.SessionRecord),
		preferences: make(map[string]map[string]json.RawMessage),
		now:         time.Now,
	}
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if rec.User != nil {
		u := *rec.User
		rec.User = &u
	}
	return &rec, nil
}

func (s *MemoryStore) SaveSession(_ context.Context, session *domain.SessionRecord) error {
	if session == nil || session.ID == "" {
		return ErrInvalidSession
	}
	rec := *session
	if rec.User != nil {
		u := *rec.User
		rec.User = &u
	}
	rec.UpdatedAt = s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.ID] = rec
	return nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) GetPreference(_ context.Context, sessionID, name string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.preferences[sessionID][name]
	if !ok {
		return nil, ErrPreferenceNotFound
	}
	return append(json.RawMessage(nil), v...), nil
}

func (s *MemoryStore) PutPreference(_ context.Context, sessionID, name string, value json.RawMessage) error {
	if sessionID == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.preferences[sessionID]
	if !ok {
		entries = make(map[string]json.RawMessage)
		s.preferences[sessionID] = entries
	}
	entries[name] = append(json.RawMessage(nil), value...)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
