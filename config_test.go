package authsession

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Session.Window != time.Hour {
		t.Fatalf("window = %v", cfg.Session.Window)
	}
	if cfg.Session.RefreshLeeway != 5*time.Minute || cfg.Session.ExpiryGrace != 5*time.Minute {
		t.Fatalf("leeway/grace = %v/%v", cfg.Session.RefreshLeeway, cfg.Session.ExpiryGrace)
	}
	if cfg.Storage.GeneralPrefix != "wrs" {
		t.Fatalf("prefix = %q", cfg.Storage.GeneralPrefix)
	}
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window", func(c *Config) { c.Session.Window = 0 }},
		{"negative leeway", func(c *Config) { c.Session.RefreshLeeway = -time.Second }},
		{"leeway exceeds window", func(c *Config) {
			c.Session.Window = time.Minute
			c.Session.RefreshLeeway = time.Hour
		}},
		{"negative grace", func(c *Config) { c.Session.ExpiryGrace = -time.Second }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	var nilConfig *Config
	if err := nilConfig.Validate(); err == nil {
		t.Fatal("nil config must not validate")
	}
}

func TestCloneConfigIsIndependent(t *testing.T) {
	cfg := defaultConfig()
	cp := cloneConfig(cfg)
	cp.Session.Window = 2 * time.Hour
	if cfg.Session.Window != time.Hour {
		t.Fatal("clone must not alias the original")
	}
}
