package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "otravers_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_ACCESS_SECRET", "access-secret-32-bytes-xxxxxxxxxxxx")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret-32-bytes-xxxxxxxxxxx")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, "otravers_test", cfg.MongoDB.Database)
	require.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	require.Equal(t, 24*time.Hour, cfg.JWT.RefreshTokenTTL)
	require.Equal(t, 7*24*time.Hour, cfg.Session.TTL)
	require.Equal(t, "session:", cfg.Session.KeyPrefix)
	require.Equal(t, "redis", cfg.Session.Backend)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfig_ProductionFlag(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")
	t.Setenv("NODE_ENV", "Production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
}

func TestValidate_Secrets(t *testing.T) {
	cfg := &Config{}
	require.ErrorIs(t, cfg.Validate(), ErrMissingAccessSecret)

	cfg.JWT.AccessSecret = "same"
	require.ErrorIs(t, cfg.Validate(), ErrMissingRefreshSecret)

	cfg.JWT.RefreshSecret = "same"
	require.ErrorIs(t, cfg.Validate(), ErrSharedSecrets)

	cfg.JWT.RefreshSecret = "different"
	require.NoError(t, cfg.Validate())
}
