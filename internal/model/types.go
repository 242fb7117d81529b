package model

import (
	"time"

	"github.com/google/uuid"
)

// MinerSnapshot is the full reported state of one solo-mining device. Every
// miner_update frame carries complete snapshots, never deltas, so a newer
// snapshot always supersedes an older one.
type MinerSnapshot struct {
	MinerID  string `json:"miner_id"`  // Stable device identifier
	Hostname string `json:"hostname"`  // Device hostname on the LAN
	Model    string `json:"model"`     // Hardware model (e.g., "Bitaxe Gamma")
	Firmware string `json:"firmware"`  // Firmware version string

	// Hashing
	HashrateGHS         float64 `json:"hashrate_ghs"`          // Current hashrate
	ExpectedHashrateGHS float64 `json:"expected_hashrate_ghs"` // Nominal hashrate for the hardware

	// Shares and difficulty
	SharesAccepted     int64   `json:"shares_accepted"`
	SharesRejected     int64   `json:"shares_rejected"`
	BestDifficulty     float64 `json:"best_difficulty"`         // All-time best share difficulty
	SessionDifficulty  float64 `json:"session_best_difficulty"` // Best since last restart
	PoolDifficulty     float64 `json:"pool_difficulty"`         // Current assigned difficulty

	// Environment
	TemperatureC   float64 `json:"temperature_c"`    // ASIC temperature
	VRTemperatureC float64 `json:"vr_temperature_c"` // Voltage regulator temperature
	FanRPM         int     `json:"fan_rpm"`
	PowerW         float64 `json:"power_w"`
	VoltageV       float64 `json:"voltage_v"`
	FrequencyMHz   int     `json:"frequency_mhz"`

	// Connectivity
	PoolURL       string `json:"pool_url"`
	StratumUser   string `json:"stratum_user"`
	WifiRSSI      int    `json:"wifi_rssi"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Alert severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is a condition the backend raised against a miner or the fleet
// ("miner offline", "temperature high", "hashrate below expected").
type Alert struct {
	ID       uuid.UUID `json:"id"`
	MinerID  string    `json:"miner_id"` // Empty for fleet-wide alerts
	Severity string    `json:"severity"`
	Code     string    `json:"code"`    // Machine-readable condition ("temp_high")
	Message  string    `json:"message"` // Human-readable description
	RaisedAt time.Time `json:"raised_at"`
	Resolved bool      `json:"resolved"`
}

// SystemInfo is backend- and network-level state shown on the dashboard.
type SystemInfo struct {
	BackendVersion    string    `json:"backend_version"`
	ConnectedMiners   int       `json:"connected_miners"`
	NetworkDifficulty float64   `json:"network_difficulty"`
	NetworkHashratePH float64   `json:"network_hashrate_ph"` // Petahash/s
	BlockHeight       int64     `json:"block_height"`
	BTCPriceUSD       float64   `json:"btc_price_usd"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// MinerUpdatePayload is the data payload of a miner_update frame.
type MinerUpdatePayload struct {
	Miners []MinerSnapshot `json:"miners"`
}

// AlertUpdatePayload is the data payload of an alert_update frame.
type AlertUpdatePayload struct {
	Alerts []Alert `json:"alerts"`
}
