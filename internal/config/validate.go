package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *MonitorConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Backend.WSURL == "" {
		return errors.New("backend.ws_url is required")
	}
	if !strings.HasPrefix(c.Backend.WSURL, "ws://") && !strings.HasPrefix(c.Backend.WSURL, "wss://") {
		return fmt.Errorf("backend.ws_url must start with ws:// or wss://, got %q", c.Backend.WSURL)
	}

	if c.Connection.HeartbeatInterval <= 0 {
		return errors.New("connection.heartbeat_interval must be positive")
	}
	if c.Connection.MissedHeartbeatLimit < -1 {
		return errors.New("connection.missed_heartbeat_limit must be >= -1 (-1 disables the liveness deadline)")
	}
	if c.Connection.BackoffFactor < 1 {
		return fmt.Errorf("connection.backoff_factor must be >= 1, got %v", c.Connection.BackoffFactor)
	}
	if c.Connection.MaxRetryAttempts < 1 {
		return errors.New("connection.max_retry_attempts must be >= 1")
	}
	for i, d := range c.Connection.InitialRetryDelays {
		if d <= 0 {
			return fmt.Errorf("connection.initial_retry_delays[%d] must be positive", i)
		}
	}
	if c.Connection.MaxRetryDelay <= 0 {
		return errors.New("connection.max_retry_delay must be positive")
	}
	if c.Connection.FaultedRetryInterval <= 0 {
		return errors.New("connection.faulted_retry_interval must be positive")
	}

	for i, topic := range c.Topics {
		if topic == "" {
			return fmt.Errorf("topics[%d] is empty", i)
		}
	}

	if c.History.Enabled {
		if err := c.History.Postgres.validate("history.postgres"); err != nil {
			return err
		}
		if c.History.Writer.BatchSize < 1 {
			return errors.New("history.writer.batch_size must be >= 1")
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
