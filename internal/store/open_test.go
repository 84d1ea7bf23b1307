package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-storefront/internal/config"
	"marketplace-storefront/internal/domain"
)

func TestOpen_Memory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Session.Backend = "memory"

	st, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, st)
	assert.NoError(t, st.Close())
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Session.Backend = "etcd"

	_, err := Open(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown session backend")
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-redis-url", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid REDIS_URL")
}

func TestRedisStore_RejectsEmptySessionID(t *testing.T) {
	st := NewRedisStoreWithClient(nil, time.Minute)

	assert.ErrorIs(t, st.SaveSession(context.Background(), &domain.SessionRecord{}), ErrInvalidSession)
	assert.ErrorIs(t, st.PutPreference(context.Background(), "", "sidebar-storage", []byte(`{}`)), ErrInvalidSession)
}
