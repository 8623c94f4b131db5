// Package config loads host configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Config is the host configuration of the coordination core. Defaults
// match the protocol contract.
type Config struct {
	UUID        string `env:"VERIDIE_UUID" envDefault:"76445157-4f39-42e9-a62e-877390cbb4bb"`
	ServiceName string `env:"VERIDIE_SERVICE_NAME" envDefault:"VeriDie"`

	DiscoverabilityDuration time.Duration `env:"VERIDIE_DISCOVERABILITY_DURATION" envDefault:"5m"`
	IgnoreOffersDuration    time.Duration `env:"VERIDIE_IGNORE_OFFERS_DURATION" envDefault:"10s"`
	RetryDelay              time.Duration `env:"VERIDIE_RETRY_DELAY" envDefault:"1s"`

	RoundsPerGenerator  int `env:"VERIDIE_ROUNDS_PER_GENERATOR" envDefault:"10"`
	MaxSendRetries      int `env:"VERIDIE_MAX_SEND_RETRIES" envDefault:"10"`
	RequestAttempts     int `env:"VERIDIE_REQUEST_ATTEMPTS" envDefault:"3"`
	MaxGameStartRetries int `env:"VERIDIE_MAX_GAME_START_RETRIES" envDefault:"30"`
	MaxDiscoveryRetries int `env:"VERIDIE_MAX_DISCOVERY_RETRIES" envDefault:"2"`
	MaxListeningRetries int `env:"VERIDIE_MAX_LISTENING_RETRIES" envDefault:"2"`
	SendRetries         int `env:"VERIDIE_SEND_RETRIES" envDefault:"5"`

	JournalPath string `env:"VERIDIE_JOURNAL_PATH"`
	Debug       bool   `env:"VERIDIE_DEBUG"`
}

// Load parses and validates the configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration's internal consistency.
func (c Config) Validate() error {
	if _, err := uuid.Parse(c.UUID); err != nil {
		return fmt.Errorf("service uuid: %w", err)
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	return nil
}
