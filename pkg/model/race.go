package model

import (
	"github.com/aarondl/opt/null"
)

// Unavailable is used for derived values that could not be computed
// (unknown car, missing neighbour, ...)
const Unavailable = "n/a"

type CarTelemetry struct {
	CarNum     string  `json:"carNum"`
	Rank       int     `json:"rank"`
	Speed      float64 `json:"speed"`
	RPM        int     `json:"rpm"`
	Throttle   int     `json:"throttle"`
	Brake      int     `json:"brake"`
	BatteryPct int     `json:"batteryPct"`
	PitStops   int     `json:"pitStops"`
}

type LeaderboardEntry struct {
	CarNum     string  `json:"carNum"`
	Rank       int     `json:"rank"`
	LapsBehind int     `json:"lapsBehind"`
	TimeBehind float64 `json:"timeBehind"` // only meaningful if LapsBehind == 0
}

// DeltaSign classifies a lap time compared to the previous lap of the same car.
type DeltaSign int

const (
	DeltaNeutral  DeltaSign = 0
	DeltaImproved DeltaSign = -1
	DeltaWorsened DeltaSign = 1
)

func (d DeltaSign) String() string {
	switch d {
	case DeltaImproved:
		return "improved"
	case DeltaWorsened:
		return "worsened"
	default:
		return "neutral"
	}
}

type LapDelta struct {
	Value float64   `json:"value"` // signed, new minus previous lap time
	Sign  DeltaSign `json:"sign"`
}

// LapRecord holds the latest lap information of a car.
// Values are null until the first Completed_Lap message for the car arrives.
type LapRecord struct {
	CarNum           string            `json:"carNum"`
	FastestLap       null.Val[float64] `json:"fastestLap"`
	LastLapNumber    null.Val[int]     `json:"lastLapNumber"`
	LastLapTime      null.Val[float64] `json:"lastLapTime"`
	TotalTime        null.Val[float64] `json:"totalTime"`
	LapsBehindLeader null.Val[int]     `json:"lapsBehindLeader"`
	TimeBehindLeader null.Val[float64] `json:"timeBehindLeader"`
	LastLapDelta     LapDelta          `json:"lastLapDelta"`
}

// NewPlaceholderLapRecord creates a record with all values unknown.
func NewPlaceholderLapRecord(carNum string) LapRecord {
	return LapRecord{
		CarNum:           carNum,
		FastestLap:       null.FromPtr[float64](nil),
		LastLapNumber:    null.FromPtr[int](nil),
		LastLapTime:      null.FromPtr[float64](nil),
		TotalTime:        null.FromPtr[float64](nil),
		LapsBehindLeader: null.FromPtr[int](nil),
		TimeBehindLeader: null.FromPtr[float64](nil),
	}
}

// DriverReference is static per car metadata used to decorate snapshots.
type DriverReference struct {
	CarNum           string `json:"carNum" yaml:"carNum"`
	CarLogo          string `json:"carLogo" yaml:"carLogo"`
	Team             string `json:"team" yaml:"team"`
	TeamLogo         string `json:"teamLogo" yaml:"teamLogo"`
	FirstName        string `json:"firstName" yaml:"firstName"`
	LastName         string `json:"lastName" yaml:"lastName"`
	DisplayName      string `json:"displayName" yaml:"displayName"`
	Headshot         string `json:"headshot" yaml:"headshot"`
	ManufacturerLogo string `json:"manufacturerLogo" yaml:"manufacturerLogo"`
}

// ReferenceData is loaded once at startup and never mutated afterwards.
type ReferenceData struct {
	Drivers           map[string]DriverReference `json:"drivers" yaml:"drivers"`
	IndicatorImages   map[string]string          `json:"indicatorImages" yaml:"indicatorImages"`
	LeaderboardImages map[string]string          `json:"leaderboardImages" yaml:"leaderboardImages"`
}

func (r *ReferenceData) Driver(carNum string) (DriverReference, bool) {
	if r == nil || r.Drivers == nil {
		return DriverReference{}, false
	}
	d, ok := r.Drivers[carNum]
	return d, ok
}
