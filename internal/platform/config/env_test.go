package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UUID != "76445157-4f39-42e9-a62e-877390cbb4bb" {
		t.Fatalf("uuid = %q", cfg.UUID)
	}
	if cfg.ServiceName != "VeriDie" {
		t.Fatalf("service name = %q", cfg.ServiceName)
	}
	if cfg.DiscoverabilityDuration != 5*time.Minute {
		t.Fatalf("discoverability = %v", cfg.DiscoverabilityDuration)
	}
	if cfg.IgnoreOffersDuration != 10*time.Second {
		t.Fatalf("ignore offers = %v", cfg.IgnoreOffersDuration)
	}
	if cfg.RoundsPerGenerator != 10 || cfg.RequestAttempts != 3 || cfg.SendRetries != 5 {
		t.Fatalf("budgets = %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VERIDIE_SERVICE_NAME", "TestDie")
	t.Setenv("VERIDIE_ROUNDS_PER_GENERATOR", "3")
	t.Setenv("VERIDIE_IGNORE_OFFERS_DURATION", "2s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "TestDie" {
		t.Fatalf("service name = %q", cfg.ServiceName)
	}
	if cfg.RoundsPerGenerator != 3 {
		t.Fatalf("rounds = %d", cfg.RoundsPerGenerator)
	}
	if cfg.IgnoreOffersDuration != 2*time.Second {
		t.Fatalf("ignore offers = %v", cfg.IgnoreOffersDuration)
	}
}

func TestValidateRejectsBadUUID(t *testing.T) {
	t.Setenv("VERIDIE_UUID", "not-a-uuid")
	if _, err := Load(); err == nil {
		t.Fatal("expected validation error")
	}
}
