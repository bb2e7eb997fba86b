// Package config provides centralized configuration loading from
// environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all resolved configuration for the service.
type Config struct {
	Wekan   WekanConfig
	Webhook WebhookConfig
	Server  ServerConfig
}

// WekanConfig holds the upstream Wekan connection settings.
type WekanConfig struct {
	URL      string
	Username string
	Password string
}

// WebhookConfig holds the inbound webhook settings.
type WebhookConfig struct {
	Secret string
}

// ServerConfig holds the HTTP server and local-resource settings.
type ServerConfig struct {
	Port         string
	TemplatesDir string
	DatabasePath string
	Standalone   bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("wekan.url", "WEKAN_URL")
	v.BindEnv("wekan.username", "WEKAN_USERNAME")
	v.BindEnv("wekan.password", "WEKAN_PASSWORD")
	v.BindEnv("github.webhook.secret", "GITHUB_WEBHOOK_SECRET")
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.templates.dir", "TEMPLATES_DIR")
	v.BindEnv("server.database.path", "DATABASE_PATH")
	v.BindEnv("server.standalone", "STANDALONE")

	v.SetDefault("wekan.url", "http://localhost:8088")
	v.SetDefault("server.port", "5000")

	cfg := &Config{
		Wekan: WekanConfig{
			URL:      strings.TrimRight(v.GetString("wekan.url"), "/"),
			Username: v.GetString("wekan.username"),
			Password: v.GetString("wekan.password"),
		},
		Webhook: WebhookConfig{
			Secret: v.GetString("github.webhook.secret"),
		},
		Server: ServerConfig{
			Port:         v.GetString("server.port"),
			TemplatesDir: v.GetString("server.templates.dir"),
			DatabasePath: v.GetString("server.database.path"),
			Standalone:   v.GetBool("server.standalone"),
		},
	}

	return cfg, nil
}

// ValidateWekan ensures the upstream credentials are present. Standalone
// mode skips this check since it never contacts Wekan.
func (c *Config) ValidateWekan() error {
	var missing []string
	if c.Wekan.Username == "" {
		missing = append(missing, "WEKAN_USERNAME")
	}
	if c.Wekan.Password == "" {
		missing = append(missing, "WEKAN_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	return nil
}

// ValidateWebhook ensures the shared webhook secret is present.
func (c *Config) ValidateWebhook() error {
	if c.Webhook.Secret == "" {
		return fmt.Errorf("missing required environment variables: [GITHUB_WEBHOOK_SECRET]")
	}
	return nil
}
