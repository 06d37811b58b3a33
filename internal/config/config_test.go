package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "test-secret")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.HTTPAddress != "0.0.0.0:8080" {
		t.Fatalf("unexpected default address %q", cfg.HTTPAddress)
	}
	if cfg.DatabasePath != "neighbourgood.db" {
		t.Fatalf("unexpected default database path %q", cfg.DatabasePath)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Fatalf("unexpected default token TTL %v", cfg.TokenTTL)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("unexpected default log level %q", cfg.LogLevel)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected default CORS origins %v", cfg.CORSOrigins)
	}
}

func TestLoadRequiresSigningSecret(t *testing.T) {
	configViper := NewViper()
	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected error for missing signing secret")
	}
}

func TestLoadOverrides(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "test-secret")
	configViper.Set("http.address", "127.0.0.1:9090")
	configViper.Set("auth.token_ttl_minutes", 15)

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.HTTPAddress != "127.0.0.1:9090" {
		t.Fatalf("override not applied: %q", cfg.HTTPAddress)
	}
	if cfg.TokenTTL != 15*time.Minute {
		t.Fatalf("override not applied: %v", cfg.TokenTTL)
	}
}

func TestLoadRejectsNonPositiveTTL(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "test-secret")
	configViper.Set("auth.token_ttl_minutes", 0)

	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected error for non-positive token TTL")
	}
}
