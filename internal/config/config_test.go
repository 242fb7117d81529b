package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "minerlink.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-collector
backend:
  ws_url: wss://monitor.local/realtime
  api_key: secret
topics:
  - miners
  - alerts
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-collector" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-collector")
	}
	if cfg.Backend.WSURL != "wss://monitor.local/realtime" {
		t.Errorf("Backend.WSURL = %q, want %q", cfg.Backend.WSURL, "wss://monitor.local/realtime")
	}
	if len(cfg.Topics) != 2 || cfg.Topics[0] != "miners" {
		t.Errorf("Topics = %v, want [miners alerts]", cfg.Topics)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_API_KEY", "hunter2")

	yaml := `
instance:
  id: test-collector
backend:
  ws_url: wss://monitor.local/realtime
  api_key: ${TEST_API_KEY}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.APIKey != "hunter2" {
		t.Errorf("Backend.APIKey = %q, want %q", cfg.Backend.APIKey, "hunter2")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-collector
backend:
  ws_url: wss://monitor.local/realtime
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Connection.HeartbeatInterval != DefaultHeartbeatInterval {
		t.Errorf("HeartbeatInterval = %v, want %v", cfg.Connection.HeartbeatInterval, DefaultHeartbeatInterval)
	}
	if cfg.Connection.BackoffFactor != DefaultBackoffFactor {
		t.Errorf("BackoffFactor = %v, want %v", cfg.Connection.BackoffFactor, DefaultBackoffFactor)
	}
	if cfg.Connection.MaxRetryAttempts != DefaultMaxRetryAttempts {
		t.Errorf("MaxRetryAttempts = %d, want %d", cfg.Connection.MaxRetryAttempts, DefaultMaxRetryAttempts)
	}
	if len(cfg.Topics) != 3 {
		t.Errorf("Topics = %v, want default three domains", cfg.Topics)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false by default")
	}
}

func TestLoadAndValidate_MissingInstanceID(t *testing.T) {
	yaml := `
backend:
  ws_url: wss://monitor.local/realtime
`
	path := writeTempFile(t, yaml)

	if _, err := LoadAndValidate(path); err == nil {
		t.Error("LoadAndValidate succeeded without instance.id, want error")
	}
}

func TestValidate(t *testing.T) {
	base := func() *MonitorConfig {
		cfg := &MonitorConfig{
			Instance: InstanceConfig{ID: "c1"},
			Backend:  BackendConfig{WSURL: "wss://monitor.local/realtime"},
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*MonitorConfig)
		wantErr bool
	}{
		{"valid", func(c *MonitorConfig) {}, false},
		{"http url", func(c *MonitorConfig) { c.Backend.WSURL = "https://monitor.local" }, true},
		{"zero heartbeat", func(c *MonitorConfig) { c.Connection.HeartbeatInterval = 0 }, true},
		{"negative missed limit", func(c *MonitorConfig) { c.Connection.MissedHeartbeatLimit = -2 }, true},
		{"disabled missed limit", func(c *MonitorConfig) { c.Connection.MissedHeartbeatLimit = -1 }, false},
		{"factor below one", func(c *MonitorConfig) { c.Connection.BackoffFactor = 0.5 }, true},
		{"empty topic", func(c *MonitorConfig) { c.Topics = []string{"miners", ""} }, true},
		{"bad metrics port", func(c *MonitorConfig) { c.Metrics.Port = 70000 }, true},
		{"zero retry delay", func(c *MonitorConfig) {
			c.Connection.InitialRetryDelays = []time.Duration{0}
		}, true},
		{"history enabled without host", func(c *MonitorConfig) { c.History.Enabled = true }, true},
		{"history enabled complete", func(c *MonitorConfig) {
			c.History.Enabled = true
			c.History.Postgres.Host = "localhost"
			c.History.Postgres.Name = "minerlink"
			c.History.Postgres.User = "minerlink"
		}, false},
		{"history min conns above max", func(c *MonitorConfig) {
			c.History.Enabled = true
			c.History.Postgres.Host = "localhost"
			c.History.Postgres.Name = "minerlink"
			c.History.Postgres.User = "minerlink"
			c.History.Postgres.MinConns = 10
			c.History.Postgres.MaxConns = 2
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate succeeded, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate failed: %v", err)
			}
		})
	}
}

func TestManagerConfigTranslation(t *testing.T) {
	cfg := &MonitorConfig{
		Instance: InstanceConfig{ID: "c1"},
		Backend:  BackendConfig{WSURL: "wss://monitor.local/realtime", APIKey: "k"},
	}
	cfg.applyDefaults()
	cfg.Connection.MissedHeartbeatLimit = -1

	mc := cfg.ManagerConfig()
	if mc.URL != cfg.Backend.WSURL {
		t.Errorf("URL = %q, want %q", mc.URL, cfg.Backend.WSURL)
	}
	if mc.MissedHeartbeatLimit != 0 {
		t.Errorf("MissedHeartbeatLimit = %d, want 0 for disabled", mc.MissedHeartbeatLimit)
	}
	if mc.Reconnect.MaxAttempts != DefaultMaxRetryAttempts {
		t.Errorf("Reconnect.MaxAttempts = %d, want %d", mc.Reconnect.MaxAttempts, DefaultMaxRetryAttempts)
	}
	if len(mc.Reconnect.InitialDelays) != len(DefaultInitialRetryDelays) {
		t.Errorf("Reconnect.InitialDelays = %v, want %v", mc.Reconnect.InitialDelays, DefaultInitialRetryDelays)
	}
}
