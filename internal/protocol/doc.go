// Package protocol defines the wire frames exchanged with the miner-monitor
// backend over the realtime WebSocket channel.
//
// Every frame is JSON with a "type" discriminator. Inbound frames decode to a
// tagged union (Frame); types this client does not recognize decode to
// Unknown rather than failing, so a newer backend never breaks the link.
package protocol
