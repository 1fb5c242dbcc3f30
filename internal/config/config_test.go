package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.UsePostgres, "docstore is the default provider")
	assert.Equal(t, 5*24*time.Hour, cfg.SessionValidityDuration)
	assert.NotEmpty(t, cfg.DatabaseDSN)
	assert.NotEmpty(t, cfg.S3Bucket)
}

func TestParseEnv_Overlay(t *testing.T) {
	t.Setenv("USE_POSTGRES", "true")
	t.Setenv("DATABASE_DSN", "postgres://x:y@localhost:5432/s")
	t.Setenv("SESSION_VALIDITY", "1h")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	require.True(t, cfg.UsePostgres)
	assert.Equal(t, "postgres://x:y@localhost:5432/s", cfg.DatabaseDSN)
	assert.Equal(t, time.Hour, cfg.SessionValidityDuration)
}

func TestParseEnv_IgnoresMalformed(t *testing.T) {
	t.Setenv("USE_POSTGRES", "not-a-bool")
	t.Setenv("SESSION_VALIDITY", "soon")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.False(t, cfg.UsePostgres)
	assert.Equal(t, 5*24*time.Hour, cfg.SessionValidityDuration)
}
