package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/hr-console/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.GetPort())
	require.Equal(t, []string{"admin", "hr"}, cfg.GetAllowedRoles())
	require.Equal(t, config.TokenStoreMemory, cfg.GetTokenStore())
	require.Equal(t, 10*time.Second, cfg.GetRequestTimeout())
	require.Equal(t, 60*time.Second, cfg.GetRefreshLeeway())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hrconsole.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service:
  port: 9000
backend:
  base_url: http://backend.internal:8081
  request_timeout_seconds: 3
session:
  allowed_roles: [admin]
  token_store: redis
cors:
  allowed_origins: [https://console.example.com]
`), 0o600))

	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "5")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.GetPort())
	require.Equal(t, "http://backend.internal:8081", cfg.GetBackendURL())
	require.Equal(t, 5*time.Second, cfg.GetRequestTimeout())
	require.Equal(t, []string{"admin"}, cfg.GetAllowedRoles())
	require.Equal(t, config.TokenStoreRedis, cfg.GetTokenStore())
	require.Equal(t, "redis://localhost:6379/2", cfg.GetRedisURL())
	require.True(t, cfg.GetAllowedOrigins().IsAllowedOrigin("https://console.example.com"))
	require.False(t, cfg.GetAllowedOrigins().IsAllowedOrigin("http://localhost:3000"))
}

func TestLoad_AllowedRolesFromEnv(t *testing.T) {
	t.Setenv("ALLOWED_ROLES", "admin, hr, auditor")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"admin", "hr", "auditor"}, cfg.GetAllowedRoles())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service: [unterminated"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
}
