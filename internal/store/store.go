package store

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/minerwatch/minerlink/internal/model"
	"github.com/minerwatch/minerlink/internal/protocol"
)

// Store holds the latest known state of the monitored fleet: one snapshot per
// miner, the open alerts, and the system summary. It is the in-process
// equivalent of the dashboard's state store, rebuilt from scratch on every
// process start.
//
// Store implements router.Sink for the miner, alert, and system domains.
type Store struct {
	logger *slog.Logger

	mu     sync.RWMutex
	miners map[string]model.MinerSnapshot
	alerts []model.Alert
	system model.SystemInfo

	parseErrors int64
}

// New creates an empty store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger: logger,
		miners: make(map[string]model.MinerSnapshot),
	}
}

// Consume applies one domain update. A payload that fails to parse is logged
// and dropped; the previous state stays in place.
func (s *Store) Consume(u protocol.DomainUpdate) {
	switch u.Domain {
	case "miner":
		var payload model.MinerUpdatePayload
		if err := json.Unmarshal(u.Data, &payload); err != nil {
			s.recordParseError("miner", err)
			return
		}
		s.applyMiners(payload.Miners)

	case "alert":
		var payload model.AlertUpdatePayload
		if err := json.Unmarshal(u.Data, &payload); err != nil {
			s.recordParseError("alert", err)
			return
		}
		s.mu.Lock()
		s.alerts = payload.Alerts
		s.mu.Unlock()

	case "system":
		var info model.SystemInfo
		if err := json.Unmarshal(u.Data, &info); err != nil {
			s.recordParseError("system", err)
			return
		}
		s.mu.Lock()
		s.system = info
		s.mu.Unlock()

	default:
		s.logger.Debug("store ignoring domain", "domain", u.Domain)
	}
}

// applyMiners replaces the snapshot of every miner present in the update.
// Miners absent from an update keep their last snapshot; the backend sends
// the full fleet on each tick, so absence usually means the device is gone
// and an alert will follow.
func (s *Store) applyMiners(miners []model.MinerSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range miners {
		if m.MinerID == "" {
			continue
		}
		s.miners[m.MinerID] = m
	}
}

// Miners returns the latest snapshot of every known miner, sorted by ID.
func (s *Store) Miners() []model.MinerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.MinerSnapshot, 0, len(s.miners))
	for _, m := range s.miners {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinerID < out[j].MinerID })
	return out
}

// Miner returns the latest snapshot for one device.
func (s *Store) Miner(id string) (model.MinerSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.miners[id]
	return m, ok
}

// Alerts returns the current alert list.
func (s *Store) Alerts() []model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// System returns the latest system summary.
func (s *Store) System() model.SystemInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.system
}

// ParseErrors returns the number of payloads dropped as unparseable.
func (s *Store) ParseErrors() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parseErrors
}

func (s *Store) recordParseError(domain string, err error) {
	s.mu.Lock()
	s.parseErrors++
	s.mu.Unlock()
	s.logger.Warn("failed to parse update payload", "domain", domain, "error", err)
}
