package authsession

import (
	"errors"
	"time"
)

// SessionConfig controls the refresh state machine.
//
// SessionConfig instances are intended to be configured during initialization
// and then treated as immutable.
type SessionConfig struct {
	// Window is the advisory lifetime stamped on a token after a successful
	// acquisition or refresh when the token itself reports no expiry.
	Window time.Duration
	// RefreshLeeway is how long before the advisory expiration a token is
	// already treated as near-expiry and refreshed proactively.
	RefreshLeeway time.Duration
	// ExpiryGrace is how long past the advisory expiration a cached token is
	// still served when a refresh attempt fails. Beyond it the session is
	// expired terminally.
	ExpiryGrace time.Duration
	// UseTokenExpiry prefers the expiry claim carried by the token itself
	// over the fixed Window when stamping the advisory expiration.
	UseTokenExpiry bool
}

// StorageConfig controls the credential persistence layer.
type StorageConfig struct {
	// GeneralPrefix namespaces entries in the general backend.
	GeneralPrefix string
}

// EventConfig controls the async event pipeline.
type EventConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events when the buffer is full instead of blocking
	// the emitting operation.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
	// EnableLatencyHistograms additionally records refresh latency buckets.
	EnableLatencyHistograms bool
}

// Config is the root configuration consumed by Build.
type Config struct {
	Session SessionConfig
	Storage StorageConfig
	Events  EventConfig
	Metrics MetricsConfig
}

func defaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			Window:        time.Hour,
			RefreshLeeway: 5 * time.Minute,
			ExpiryGrace:   5 * time.Minute,
		},
		Storage: StorageConfig{
			GeneralPrefix: "wrs",
		},
		Events: EventConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Session.Window <= 0 {
		return errors.New("session window must be positive")
	}
	if c.Session.RefreshLeeway < 0 {
		return errors.New("refresh leeway must not be negative")
	}
	if c.Session.RefreshLeeway >= c.Session.Window {
		return errors.New("refresh leeway must be shorter than the session window")
	}
	if c.Session.ExpiryGrace < 0 {
		return errors.New("expiry grace must not be negative")
	}
	if c.Events.Enabled && c.Events.BufferSize < 0 {
		return errors.New("event buffer size must not be negative")
	}
	return nil
}

func cloneConfig(c *Config) *Config {
	cp := *c
	return &cp
}
