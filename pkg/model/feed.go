package model

// Kind identifies a message type of the timing feed. The value equals the
// element name used on the wire.
type Kind string

const (
	KindTelemetry    Kind = "Telemetry_Leaderboard"
	KindPitSummary   Kind = "Pit_Summary"
	KindLeaderboard  Kind = "Unofficial_Leaderboard"
	KindCompletedLap Kind = "Completed_Lap"
)

// DefaultKindOrder is the priority used when searching the receive buffer.
var DefaultKindOrder = []Kind{
	KindTelemetry,
	KindPitSummary,
	KindLeaderboard,
	KindCompletedLap,
}

func (k Kind) String() string { return string(k) }

// Message is implemented by all decoded feed messages
type Message interface {
	Kind() Kind
}

type TelemetrySnapshot struct {
	Cars []CarTelemetry
}

type LeaderboardSnapshot struct {
	Entries []LeaderboardEntry
}

type LapCompleted struct {
	CarNum           string
	FastestLap       float64
	LapNumber        int
	LapTime          float64
	TotalTime        float64
	LapsBehindLeader int
	TimeBehindLeader float64
}

type PitSummary struct {
	CarNum        string
	PitStopNumber int // 0 if not transmitted
	Attrs         map[string]string
}

func (TelemetrySnapshot) Kind() Kind   { return KindTelemetry }
func (LeaderboardSnapshot) Kind() Kind { return KindLeaderboard }
func (LapCompleted) Kind() Kind        { return KindCompletedLap }
func (PitSummary) Kind() Kind          { return KindPitSummary }
