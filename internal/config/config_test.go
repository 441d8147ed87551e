package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "models/text_classifier.json", cfg.ModelPath)
	assert.Equal(t, "models/labels.json", cfg.LabelsPath)
	assert.False(t, cfg.AllowDegradedStart)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 4000, cfg.MaxTextChars)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("ENV", "production")
	t.Setenv("MODEL_PATH", "/opt/models/clf.json")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg := Load()

	assert.Equal(t, "9999", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "/opt/models/clf.json", cfg.ModelPath)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.Validate())

	cfg.Env = "production"
	cfg.AllowDegradedStart = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALLOW_DEGRADED_START")

	cfg = Load()
	cfg.MaxTextChars = 0
	assert.Error(t, cfg.Validate())
}
