package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultHeartbeatInterval    = 15 * time.Second
	DefaultMissedHeartbeatLimit = 3
	DefaultBackoffFactor        = 2.0
	DefaultMaxRetryDelay        = 30 * time.Second
	DefaultMaxRetryAttempts     = 10
	DefaultFaultedRetryInterval = 60 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultBufferSize           = 1000
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 5
	DefaultMinConns             = 1
	DefaultBatchSize            = 500
	DefaultFlushInterval        = 5 * time.Second
	DefaultMetricsPort          = 9090
	DefaultMetricsPath          = "/metrics"
)

// DefaultInitialRetryDelays masks transient blips before anyone notices.
var DefaultInitialRetryDelays = []time.Duration{
	25 * time.Millisecond,
	50 * time.Millisecond,
	75 * time.Millisecond,
}

// DefaultTopics covers every domain the dashboard renders.
var DefaultTopics = []string{"miners", "alerts", "system"}

func (c *MonitorConfig) applyDefaults() {
	// Connection defaults
	if c.Connection.HeartbeatInterval == 0 {
		c.Connection.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.Connection.MissedHeartbeatLimit == 0 {
		c.Connection.MissedHeartbeatLimit = DefaultMissedHeartbeatLimit
	}
	if len(c.Connection.InitialRetryDelays) == 0 {
		c.Connection.InitialRetryDelays = DefaultInitialRetryDelays
	}
	if c.Connection.BackoffFactor == 0 {
		c.Connection.BackoffFactor = DefaultBackoffFactor
	}
	if c.Connection.MaxRetryDelay == 0 {
		c.Connection.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if c.Connection.MaxRetryAttempts == 0 {
		c.Connection.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if c.Connection.FaultedRetryInterval == 0 {
		c.Connection.FaultedRetryInterval = DefaultFaultedRetryInterval
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.HandshakeTimeout == 0 {
		c.Connection.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultBufferSize
	}

	// Topics
	if len(c.Topics) == 0 {
		c.Topics = append([]string(nil), DefaultTopics...)
	}

	// History defaults (only meaningful when enabled)
	if c.History.Postgres.Port == 0 {
		c.History.Postgres.Port = DefaultDBPort
	}
	if c.History.Postgres.SSLMode == "" {
		c.History.Postgres.SSLMode = DefaultDBSSLMode
	}
	if c.History.Postgres.MaxConns == 0 {
		c.History.Postgres.MaxConns = DefaultMaxConns
	}
	if c.History.Postgres.MinConns == 0 {
		c.History.Postgres.MinConns = DefaultMinConns
	}
	if c.History.Writer.BatchSize == 0 {
		c.History.Writer.BatchSize = DefaultBatchSize
	}
	if c.History.Writer.FlushInterval == 0 {
		c.History.Writer.FlushInterval = DefaultFlushInterval
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
