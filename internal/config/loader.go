package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/minerwatch/minerlink/internal/connection"
)

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*MonitorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg MonitorConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*MonitorConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*MonitorConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// ManagerConfig translates the connection section for the connection Manager.
// A missed_heartbeat_limit of -1 maps to 0 (deadline disabled).
func (c *MonitorConfig) ManagerConfig() connection.ManagerConfig {
	missed := c.Connection.MissedHeartbeatLimit
	if missed < 0 {
		missed = 0
	}
	return connection.ManagerConfig{
		URL:    c.Backend.WSURL,
		APIKey: c.Backend.APIKey,
		Reconnect: connection.PolicyConfig{
			InitialDelays:        c.Connection.InitialRetryDelays,
			Factor:               c.Connection.BackoffFactor,
			MaxDelay:             c.Connection.MaxRetryDelay,
			MaxAttempts:          c.Connection.MaxRetryAttempts,
			FaultedRetryInterval: c.Connection.FaultedRetryInterval,
		},
		HeartbeatInterval:    c.Connection.HeartbeatInterval,
		MissedHeartbeatLimit: missed,
		WriteTimeout:         c.Connection.WriteTimeout,
		HandshakeTimeout:     c.Connection.HandshakeTimeout,
		BufferSize:           c.Connection.BufferSize,
	}
}
