// Package writer implements batch writers for the telemetry history store.
//
// Writers:
//   - Telemetry writer (one row per miner snapshot)
//   - Alert writer (one row per raised alert)
//
// Both writers consume domain updates from the message router, accumulate
// rows in memory, and flush with pgx batches. All writes are append-only
// (never update, only insert).
package writer
