package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"marketplace-storefront/internal/logging"
	"marketplace-storefront/internal/store"
)

// SidebarKey is the preference entry the sidebar flag is stored under.
const SidebarKey = "sidebar-storage"

type sidebarDoc struct {
	Collapsed bool `json:"collapsed"`
}

// Sidebar is the collapsed flag of the dashboard sidebar, the only UI state
// that survives a reload.
type Sidebar struct {
	mu        sync.Mutex
	collapsed bool
	sessionID string
	prefs     store.PreferenceStorer
	log       logrus.FieldLogger
}

// NewSidebar binds the sidebar to the preference entry of sessionID.
func NewSidebar(sessionID string, prefs store.PreferenceStorer, log logrus.FieldLogger) *Sidebar {
	return &Sidebar{sessionID: sessionID, prefs: prefs, log: logging.Component(log, "sidebar")}
}

// Load hydrates the flag from storage. A missing or unreadable entry leaves
// the default (expanded).
func (s *Sidebar) Load(ctx context.Context) error {
	raw, err := s.prefs.GetPreference(ctx, s.sessionID, SidebarKey)
	if err != nil {
		if errors.Is(err, store.ErrPreferenceNotFound) {
			return nil
		}
		return fmt.Errorf("state: failed to load sidebar: %w", err)
	}
	var doc sidebarDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.WithError(err).Warn("ignoring malformed sidebar preference")
		return nil
	}
	s.mu.Lock()
	s.collapsed = doc.Collapsed
	s.mu.Unlock()
	return nil
}

func (s *Sidebar) Collapsed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collapsed
}

// Toggle flips the flag and persists it, returning the new value.
func (s *Sidebar) Toggle(ctx context.Context) (bool, error) {
	s.mu.Lock()
	s.collapsed = !s.collapsed
	v := s.collapsed
	s.mu.Unlock()
	return v, s.persist(ctx, v)
}

// SetCollapsed sets the flag and persists it.
func (s *Sidebar) SetCollapsed(ctx context.Context, collapsed bool) error {
	s.mu.Lock()
	s.collapsed = collapsed
	s.mu.Unlock()
	return s.persist(ctx, collapsed)
}

func (s *Sidebar) persist(ctx context.Context, collapsed bool) error {
	raw, err := json.Marshal(sidebarDoc{Collapsed: collapsed})
	if err != nil {
		return fmt.Errorf("state: failed to encode sidebar: %w", err)
	}
	if err := s.prefs.PutPreference(ctx, s.sessionID, SidebarKey, raw); err != nil {
		return fmt.Errorf("state: failed to persist sidebar: %w", err)
	}
	return nil
}
