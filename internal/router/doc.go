// Package router implements the Message Router: it classifies parsed inbound
// frames by type and dispatches domain snapshots to registered sinks.
//
// A frame the router cannot place (unknown type, no sink for its domain, or a
// server-reported error) produces a diagnostic record and nothing else;
// malformed or unexpected server input never disturbs the connection.
package router
