package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "APP_URL", "DEMO_MODE", "NO_SHOW_GRACE_MINUTES", "UPCOMING_SCAN_INTERVAL_SECONDS", "JWT_TTL_HOURS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:3000", cfg.AppURL)
	assert.False(t, cfg.DemoMode)
	assert.Equal(t, 15*time.Minute, cfg.NoShowGrace)
	assert.Equal(t, 2*time.Minute, cfg.UpcomingInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_URL", "https://eline.example/")
	t.Setenv("DEMO_MODE", "true")
	t.Setenv("NO_SHOW_SCAN_INTERVAL_SECONDS", "0")
	t.Setenv("SWEEP_BATCH_SIZE", "not-a-number")

	cfg := Load()

	assert.Equal(t, "https://eline.example", cfg.AppURL)
	assert.True(t, cfg.DemoMode)
	assert.Zero(t, cfg.NoShowInterval)
	assert.Equal(t, 200, cfg.SweepBatchSize)
}

func TestLocationFallsBackToLocal(t *testing.T) {
	assert.Equal(t, time.Local, Config{Timezone: "Nowhere/Invalid"}.Location())
	assert.Equal(t, time.UTC, Config{Timezone: "UTC"}.Location())
}
