package gate_test

import (
	"testing"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/livetiming-relay/pkg/gate"
	"github.com/mpapenbr/livetiming-relay/pkg/model"
	"github.com/mpapenbr/livetiming-relay/pkg/processing"
)

func TestGate_OfflineClearsLiveDataKeepsLaps(t *testing.T) {
	proc := processing.NewProcessor()
	g := gate.NewGate(proc)

	proc.ApplyLapCompleted(&model.LapCompleted{
		CarNum: "9", LapNumber: 5, LapTime: 60.1, FastestLap: 59.8,
	})
	require.True(t, g.Set(gate.Control{Online: true, TargetCar: "9"}))
	proc.ApplyTelemetry(&model.TelemetrySnapshot{Cars: []model.CarTelemetry{
		{CarNum: "9", Rank: 2, Speed: 220},
	}})
	proc.ApplyLeaderboard(&model.LeaderboardSnapshot{Entries: []model.LeaderboardEntry{
		{CarNum: "12", Rank: 1},
		{CarNum: "9", Rank: 2, TimeBehind: 1.234},
	}})
	before := proc.Snapshot("9")
	require.NotEmpty(t, before.Telemetry)
	require.NotEmpty(t, before.Leaderboard)

	require.True(t, g.Set(gate.Control{Online: false, TargetCar: "9"}))
	offline := proc.Snapshot("9")
	assert.Empty(t, offline.Telemetry)
	assert.Empty(t, offline.Leaderboard)
	assert.Equal(t, before.Laps, offline.Laps)

	require.True(t, g.Set(gate.Control{Online: true, TargetCar: "9"}))
	online := proc.Snapshot("9")
	assert.Empty(t, online.Telemetry)
	assert.Empty(t, online.Leaderboard)
	assert.Equal(t, before.Laps, online.Laps)
	assert.Equal(t, null.From(5), online.Laps["9"].LastLapNumber)
}
