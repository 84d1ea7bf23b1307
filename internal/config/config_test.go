package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "https://api.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "8080", cfg.HttpServer.Port)
	assert.Equal(t, 60*time.Second, cfg.Cache.StaleTime)
	assert.Equal(t, 10*time.Minute, cfg.Cache.WishlistStaleTime)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, "/login", cfg.Upstream.LoginPath)
	assert.Equal(t, "/uploads", cfg.Format.UploadPrefix)
}

func TestLoad_MissingUpstream(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_PostgresBackendRequiresCredentials(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "https://api.example.com")
	t.Setenv("SESSION_BACKEND", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_USER")
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "https://api.example.com")
	t.Setenv("SESSION_BACKEND", "etcd")

	_, err := Load()
	require.Error(t, err)
}

func TestPostgresConfig_DSN(t *testing.T) {
	pc := PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "store"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=store sslmode=disable", pc.DSN())
}
