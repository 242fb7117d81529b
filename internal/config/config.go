package config

import "time"

// MonitorConfig is the root configuration for a minerlink instance.
type MonitorConfig struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Backend    BackendConfig    `yaml:"backend"`
	Connection ConnectionConfig `yaml:"connection"`
	Topics     []string         `yaml:"topics"`
	History    HistoryConfig    `yaml:"history"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// InstanceConfig identifies this collector.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// BackendConfig holds the miner-monitor backend endpoint.
type BackendConfig struct {
	WSURL  string `yaml:"ws_url"`  // Realtime endpoint (ws:// or wss://)
	APIKey string `yaml:"api_key"` // Optional bearer token
}

// ConnectionConfig holds realtime connection manager settings.
type ConnectionConfig struct {
	HeartbeatInterval    time.Duration   `yaml:"heartbeat_interval"`
	MissedHeartbeatLimit int             `yaml:"missed_heartbeat_limit"` // -1 disables the liveness deadline
	InitialRetryDelays   []time.Duration `yaml:"initial_retry_delays"`
	BackoffFactor        float64         `yaml:"backoff_factor"`
	MaxRetryDelay        time.Duration   `yaml:"max_retry_delay"`
	MaxRetryAttempts     int             `yaml:"max_retry_attempts"`
	FaultedRetryInterval time.Duration   `yaml:"faulted_retry_interval"`
	WriteTimeout         time.Duration   `yaml:"write_timeout"`
	HandshakeTimeout     time.Duration   `yaml:"handshake_timeout"`
	BufferSize           int             `yaml:"buffer_size"`
}

// HistoryConfig holds the optional telemetry history recorder.
type HistoryConfig struct {
	Enabled  bool         `yaml:"enabled"`
	Postgres DBConfig     `yaml:"postgres"`
	Writer   WriterConfig `yaml:"writer"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WriterConfig holds batch writer settings.
type WriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
