// Package config loads service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all service-level settings. Store-facing settings
// (client id, account mappings) live in the database, not here.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	LogLevel   string `yaml:"log_level"`

	// EncryptionSecret keys the secret box for stored credentials.
	// SigningSecret is the host-wide fallback when it is unset.
	EncryptionSecret string `yaml:"encryption_secret"`
	SigningSecret    string `yaml:"signing_secret"`

	// WebhookSecret verifies the HMAC signature on inbound order
	// webhooks. Empty disables verification.
	WebhookSecret string `yaml:"webhook_secret"`

	// AdminPassword protects the admin API via basic auth when set.
	AdminPassword string `yaml:"admin_password"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		ListenAddr: ":8686",
		DBPath:     "xerosync.db",
		LogLevel:   "info",
	}
}

// Load reads the YAML file at path (if it exists) over Defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"XEROSYNC_LISTEN_ADDR":       &cfg.ListenAddr,
		"XEROSYNC_DB_PATH":           &cfg.DBPath,
		"XEROSYNC_LOG_LEVEL":         &cfg.LogLevel,
		"XEROSYNC_ENCRYPTION_SECRET": &cfg.EncryptionSecret,
		"XEROSYNC_SIGNING_SECRET":    &cfg.SigningSecret,
		"XEROSYNC_WEBHOOK_SECRET":    &cfg.WebhookSecret,
		"XEROSYNC_ADMIN_PASSWORD":    &cfg.AdminPassword,
	}
	for env, dst := range overrides {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
}
