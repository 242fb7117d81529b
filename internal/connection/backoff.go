package connection

import (
	"math"
	"time"
)

// PolicyConfig tunes the reconnection backoff schedule.
type PolicyConfig struct {
	// InitialDelays are the delays for the first attempts, kept short so a
	// transient blip is masked before anyone notices the link was down.
	InitialDelays []time.Duration

	// Factor multiplies the delay for each attempt past the initial ones.
	Factor float64

	// MaxDelay caps the computed delay.
	MaxDelay time.Duration

	// MaxAttempts is the number of consecutive failures tolerated before the
	// policy reports exhaustion.
	MaxAttempts int

	// FaultedRetryInterval is the single slow retry scheduled from the
	// faulted state, so a backend down for maintenance is still recovered
	// from without hammering it.
	FaultedRetryInterval time.Duration
}

// DefaultPolicyConfig returns sensible defaults.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		InitialDelays:        []time.Duration{25 * time.Millisecond, 50 * time.Millisecond, 75 * time.Millisecond},
		Factor:               2.0,
		MaxDelay:             30 * time.Second,
		MaxAttempts:          10,
		FaultedRetryInterval: 60 * time.Second,
	}
}

// Policy decides when a closed connection is retried. It is stateless; the
// Manager owns the attempt counter and feeds it in.
type Policy struct {
	cfg PolicyConfig
}

// NewPolicy creates a Policy, filling in defaults for zero-valued fields.
func NewPolicy(cfg PolicyConfig) *Policy {
	def := DefaultPolicyConfig()
	if len(cfg.InitialDelays) == 0 {
		cfg.InitialDelays = def.InitialDelays
	}
	if cfg.Factor < 1 {
		cfg.Factor = def.Factor
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.FaultedRetryInterval <= 0 {
		cfg.FaultedRetryInterval = def.FaultedRetryInterval
	}
	return &Policy{cfg: cfg}
}

// NextDelay returns the wait before reconnect attempt attempt (0-based).
// The first attempts use the fixed short delays; later ones grow
// exponentially up to MaxDelay.
func (p *Policy) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	fixed := len(p.cfg.InitialDelays)
	if attempt < fixed {
		return p.cfg.InitialDelays[attempt]
	}

	base := float64(p.cfg.InitialDelays[fixed-1])
	d := base * math.Pow(p.cfg.Factor, float64(attempt-fixed+1))
	if d > float64(p.cfg.MaxDelay) || d <= 0 || math.IsInf(d, 1) {
		return p.cfg.MaxDelay
	}
	return time.Duration(d)
}

// Exhausted reports whether attempt consecutive failures have used up the
// regular backoff schedule.
func (p *Policy) Exhausted(attempt int) bool {
	return attempt >= p.cfg.MaxAttempts
}

// FaultedRetryInterval returns the delay for the slow retry out of the
// faulted state.
func (p *Policy) FaultedRetryInterval() time.Duration {
	return p.cfg.FaultedRetryInterval
}
