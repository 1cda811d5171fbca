package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "access")
	t.Setenv("JWT_REFRESH_SECRET", "refresh")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.RefreshTTL)
	assert.True(t, cfg.JWT.RotateRefresh)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Database.ReplicaDSNs)
	assert.Equal(t, "http://127.0.0.1:9000", cfg.Storage.PublicURL)
	assert.Equal(t, int64(100), cfg.Service.MaxUploadMB)
}

func TestLoad_MissingSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_ACCESS_SECRET")
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "access")
	t.Setenv("JWT_REFRESH_SECRET", "refresh")
	t.Setenv("JWT_ACCESS_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_ACCESS_TTL")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Service:  ServiceConfig{MaxUploadMB: 10},
			Database: DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"},
			JWT:      JWTConfig{AccessSecret: "a", RefreshSecret: "b", AccessTTL: time.Minute, RefreshTTL: time.Hour},
			Storage:  StorageConfig{Endpoint: "localhost:9000", Bucket: "media"},
			Outbox:   OutboxConfig{Interval: time.Second, BatchSize: 10},
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.JWT.RefreshSecret = cfg.JWT.AccessSecret
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Bucket = ""
	assert.Error(t, cfg.Validate())
}
