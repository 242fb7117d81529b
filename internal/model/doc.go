// Package model defines the domain types carried in realtime update frames.
//
// Conventions:
//   - Hashrates: GH/s for devices, PH/s for the network
//   - IDs: string for miner identifiers, uuid.UUID for alerts
//   - Every update is a full snapshot; consumers replace, never merge
package model
