// Package database provides connection pool management for the history store.
//
// The collector persists telemetry samples and raised alerts to PostgreSQL
// when history recording is enabled. A single pool is shared by the writers.
package database
