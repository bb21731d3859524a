package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"./data"}, cfg.AllowedRoots)
	assert.Equal(t, "./trash", cfg.TrashRoot)
	assert.Equal(t, 720*time.Hour, cfg.RetentionWindow)
	assert.Equal(t, int64(10*1024*1024), cfg.AutoApproveBytes)
	assert.Equal(t, []string{"delete"}, cfg.AlwaysConfirmKinds)
	assert.Equal(t, 10*time.Minute, cfg.ApprovalTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ALLOWED_ROOTS", "/srv/a, /srv/b")
	t.Setenv("ALWAYS_CONFIRM_KINDS", "delete,move")
	t.Setenv("AUTO_APPROVE_BYTES", "1048576")
	t.Setenv("TRASH_RETENTION", "48h")
	t.Setenv("RATE_LIMIT_GENERAL_RPM", "60")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"/srv/a", "/srv/b"}, cfg.AllowedRoots)
	assert.Equal(t, []string{"delete", "move"}, cfg.AlwaysConfirmKinds)
	assert.Equal(t, int64(1048576), cfg.AutoApproveBytes)
	assert.Equal(t, 48*time.Hour, cfg.RetentionWindow)
	assert.Equal(t, 60, cfg.RateLimitGeneralRPM)
}

func TestValidateErrors(t *testing.T) {
	base := func() *Config {
		return &Config{
			AllowedRoots:        []string{"/srv/data"},
			TrashRoot:           "/srv/trash",
			RetentionWindow:     time.Hour,
			TrashSizeCap:        1024,
			AlwaysConfirmKinds:  []string{"delete"},
			ApprovalTimeout:     time.Minute,
			SweepInterval:       time.Minute,
			DBMaxConns:          10,
			DBMinConns:          2,
			JWTSecret:           "secret",
			RateLimitGeneralRPM: 300,
			RateLimitAuthRPM:    20,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no roots", func(c *Config) { c.AllowedRoots = nil }},
		{"empty trash root", func(c *Config) { c.TrashRoot = "" }},
		{"zero retention", func(c *Config) { c.RetentionWindow = 0 }},
		{"negative auto approve", func(c *Config) { c.AutoApproveBytes = -1 }},
		{"unknown confirm kind", func(c *Config) { c.AlwaysConfirmKinds = []string{"truncate"} }},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }},
		{"max conns below min", func(c *Config) { c.DBMaxConns = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, base().Validate())
}
