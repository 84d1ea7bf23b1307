package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"marketplace-storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SessionLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetSession(ctx, "sid")
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	user := &domain.User{ID: "u1", Role: domain.RoleCustomer}
	require.NoError(t, s.SaveSession(ctx, &domain.SessionRecord{ID: "sid", Token: "tok", User: user}))

	user.Role = domain.RoleAdmin // mutating the caller's copy must not leak into the store

	rec, err := s.GetSession(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "tok", rec.Token)
	assert.Equal(t, domain.RoleCustomer, rec.User.Role)
	assert.False(t, rec.UpdatedAt.IsZero())

	require.NoError(t, s.DeleteSession(ctx, "sid"))
	assert.True(t, errors.Is(s.DeleteSession(ctx, "sid"), ErrSessionNotFound))
}

func TestMemoryStore_Preferences(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetPreference(ctx, "sid", "sidebar-storage")
	assert.True(t, errors.Is(err, ErrPreferenceNotFound))

	require.NoError(t, s.PutPreference(ctx, "sid", "sidebar-storage", json.RawMessage(`{"collapsed":true}`)))
	got, err := s.GetPreference(ctx, "sid", "sidebar-storage")
	require.NoError(t, err)
	assert.JSONEq(t, `{"collapsed":true}`, string(got))

	assert.True(t, errors.Is(s.PutPreference(ctx, "", "x", nil), ErrInvalidSession))
}

func TestMemoryStore_SessionDeleteKeepsPreferences(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, &domain.SessionRecord{ID: "sid", Token: "tok"}))
	require.NoError(t, s.PutPreference(ctx, "sid", "sidebar-storage", json.RawMessage(`{"collapsed":false}`)))
	require.NoError(t, s.DeleteSession(ctx, "sid"))

	_, err := s.GetPreference(ctx, "sid", "sidebar-storage")
	assert.NoError(t, err)
}
