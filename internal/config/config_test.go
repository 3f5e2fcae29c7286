package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "APP_ENV", "PAGE_SIZE", "TOKEN_TTL", "KAFKA_BROKERS", "FORBID_SELF_EDGES", "REDIS_ADDR"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.Port != "3001" {
		t.Errorf("Expected default port 3001, got %s", cfg.Port)
	}
	if cfg.PageSize != 10 {
		t.Errorf("Expected page size 10, got %d", cfg.PageSize)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("Expected token ttl 24h, got %s", cfg.TokenTTL)
	}
	if cfg.KafkaBrokers != nil {
		t.Errorf("Expected no kafka brokers, got %v", cfg.KafkaBrokers)
	}
	if cfg.ForbidSelfEdges {
		t.Error("Self edges should be allowed by default")
	}
	if cfg.IsDevelopment() {
		t.Error("Default env should not be development")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("APP_ENV", "development")
	t.Setenv("PAGE_SIZE", "25")
	t.Setenv("REQUEST_TIMEOUT", "250ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("FORBID_SELF_EDGES", "true")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Port)
	}
	if !cfg.IsDevelopment() {
		t.Error("Expected development env")
	}
	if cfg.PageSize != 25 {
		t.Errorf("Expected page size 25, got %d", cfg.PageSize)
	}
	if cfg.RequestTimeout != 250*time.Millisecond {
		t.Errorf("Expected 250ms timeout, got %s", cfg.RequestTimeout)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("Unexpected brokers %v", cfg.KafkaBrokers)
	}
	if !cfg.ForbidSelfEdges {
		t.Error("Expected self edges to be forbidden")
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PAGE_SIZE", "-3")
	t.Setenv("BCRYPT_COST", "lots")
	t.Setenv("RATE_WINDOW", "soon")

	cfg := Load()
	if cfg.PageSize != 10 {
		t.Errorf("Expected page size fallback 10, got %d", cfg.PageSize)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("Expected bcrypt cost fallback 12, got %d", cfg.BcryptCost)
	}
	if cfg.RateWindow != time.Minute {
		t.Errorf("Expected rate window fallback 1m, got %s", cfg.RateWindow)
	}
}
