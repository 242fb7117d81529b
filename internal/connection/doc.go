// Package connection implements the realtime Connection Manager.
//
// The Manager:
//   - Owns exactly one WebSocket transport generation at a time
//   - Recovers closed links with short fixed delays, then exponential
//     backoff up to a ceiling, then a slow faulted-state retry
//   - Emits heartbeat pings while connected and closes silent links
//   - Re-sends the full desired topic set on every successful open
//   - Hands every inbound frame to the Message Router
package connection
