package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8088", cfg.Wekan.URL)
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Empty(t, cfg.Wekan.Username)
	assert.Empty(t, cfg.Webhook.Secret)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("WEKAN_URL", "https://wekan.example.com/")
	t.Setenv("WEKAN_USERNAME", "admin")
	t.Setenv("WEKAN_PASSWORD", "admin123")
	t.Setenv("GITHUB_WEBHOOK_SECRET", "s3cret")
	t.Setenv("PORT", "8080")
	t.Setenv("TEMPLATES_DIR", "/etc/sync/templates")
	t.Setenv("DATABASE_PATH", "/var/lib/sync/audit.db")
	t.Setenv("STANDALONE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://wekan.example.com", cfg.Wekan.URL, "trailing slash is stripped")
	assert.Equal(t, "admin", cfg.Wekan.Username)
	assert.Equal(t, "admin123", cfg.Wekan.Password)
	assert.Equal(t, "s3cret", cfg.Webhook.Secret)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "/etc/sync/templates", cfg.Server.TemplatesDir)
	assert.Equal(t, "/var/lib/sync/audit.db", cfg.Server.DatabasePath)
	assert.True(t, cfg.Server.Standalone)
}

func TestValidateWekan(t *testing.T) {
	cfg := &Config{}
	err := cfg.ValidateWekan()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEKAN_USERNAME")
	assert.Contains(t, err.Error(), "WEKAN_PASSWORD")

	cfg.Wekan.Username = "admin"
	err = cfg.ValidateWekan()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "WEKAN_USERNAME")

	cfg.Wekan.Password = "admin123"
	assert.NoError(t, cfg.ValidateWekan())
}

func TestValidateWebhook(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.ValidateWebhook())

	cfg.Webhook.Secret = "s3cret"
	assert.NoError(t, cfg.ValidateWebhook())
}
