package model

import "time"

type Trend string

const (
	TrendUnchanged Trend = "unchanged"
	TrendImproved  Trend = "improved"
	TrendWorsened  Trend = "worsened"
)

// Snapshot is a read-only copy of the race state taken at one instant.
// It is handed to the sinks and must not be modified by them.
type Snapshot struct {
	Timestamp   time.Time               `json:"timestamp"`
	TargetCar   string                  `json:"targetCar"`
	Target      *TargetTelemetry        `json:"target,omitempty"`
	Telemetry   map[string]CarTelemetry `json:"telemetry"`
	Leaderboard []LeaderboardEntry      `json:"leaderboard"`
	Laps        map[string]LapRecord    `json:"laps"`
	Rows        []LeaderboardRow        `json:"rows"`
	DriverInfo  *DriverInfo             `json:"driverInfo,omitempty"`
}

// TargetTelemetry is the telemetry of the selected car together with the
// indicator bands used by the broadcast graphics.
type TargetTelemetry struct {
	CarTelemetry
	Ordinal     string `json:"ordinal"`
	DisplayName string `json:"displayName"`
	Headshot    string `json:"headshot"`
	RPMBands    []bool `json:"rpmBands"`
	Throttle    []bool `json:"throttleBands"`
	Brake       []bool `json:"brakeBands"`
	// image per band, taken from the reference indicator images
	RPMImages      []string `json:"rpmImages"`
	ThrottleImages []string `json:"throttleImages"`
	BrakeImages    []string `json:"brakeImages"`
}

// LeaderboardRow is a leaderboard entry decorated with reference and lap data.
type LeaderboardRow struct {
	Rank          int    `json:"rank"`
	CarNum        string `json:"carNum"`
	CarLogo       string `json:"carLogo"`
	Team          string `json:"team"`
	TeamLogo      string `json:"teamLogo"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	DisplayName   string `json:"displayName"`
	LeaderSplit   string `json:"leaderSplit"`
	IntervalSplit string `json:"intervalSplit"`
	Speed         string `json:"speed"`
	Highlight     string `json:"highlight"`
	LapsCompleted string `json:"lapsCompleted"`
	LastLapTime   string `json:"lastLapTime"`
}

// DriverInfo describes the selected car relative to its neighbours.
type DriverInfo struct {
	CarNum           string    `json:"carNum"`
	Rank             int       `json:"rank"`
	Ordinal          string    `json:"ordinal"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	DisplayName      string    `json:"displayName"`
	Headshot         string    `json:"headshot"`
	TeamLogo         string    `json:"teamLogo"`
	ManufacturerLogo string    `json:"manufacturerLogo"`
	LapNumber        string    `json:"lapNumber"`
	LastLapTime      string    `json:"lastLapTime"`
	Speed            string    `json:"speed"`
	AheadLastName    string    `json:"aheadLastName"`
	BehindLastName   string    `json:"behindLastName"`
	LastLapDelta     string    `json:"lastLapDelta"`
	LastLapDeltaSign DeltaSign `json:"lastLapDeltaSign"`
	AheadSplit       string    `json:"aheadSplit"`
	AheadSplitTrend  Trend     `json:"aheadSplitTrend"`
}
