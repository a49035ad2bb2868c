//nolint:lll,funlen // ok for tests
package decode

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

func TestDecode_Leaderboard(t *testing.T) {
	block := `<Unofficial_Leaderboard><Position Car="12" Rank="1" Laps_Behind="0" Time_Behind="0.0"/><Position Car="9" Rank="2" Laps_Behind="0" Time_Behind="1.234"/></Unofficial_Leaderboard>`
	msg, err := Decode(model.KindLeaderboard, []byte(block))
	require.NoError(t, err)
	want := model.LeaderboardSnapshot{Entries: []model.LeaderboardEntry{
		{CarNum: "12", Rank: 1, LapsBehind: 0, TimeBehind: 0},
		{CarNum: "9", Rank: 2, LapsBehind: 0, TimeBehind: 1.234},
	}}
	if diff := cmp.Diff(want, msg); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_Telemetry(t *testing.T) {
	block := `<Telemetry_Leaderboard Elapsed_Time="123"><Position Car="5" Rank="3" speed="221.75" rpm="11250" throttle="98" brake="0" Battery_Pct_Remaining="44"/><Position Car="7" Rank="4" speed="210" rpm="9000" throttle="0" brake="87" Battery_Pct_Remaining="51"/></Telemetry_Leaderboard>`
	msg, err := Decode(model.KindTelemetry, []byte(block))
	require.NoError(t, err)
	snap, ok := msg.(model.TelemetrySnapshot)
	require.True(t, ok)
	assert.Equal(t, []model.CarTelemetry{
		{CarNum: "5", Rank: 3, Speed: 221.75, RPM: 11250, Throttle: 98, Brake: 0, BatteryPct: 44},
		{CarNum: "7", Rank: 4, Speed: 210, RPM: 9000, Throttle: 0, Brake: 87, BatteryPct: 51},
	}, snap.Cars)
}

func TestDecode_SingleChildEqualsArrayElement(t *testing.T) {
	single := `<Telemetry_Leaderboard><Position Car="5" Rank="3" speed="221.75" rpm="11250" throttle="98" brake="0" Battery_Pct_Remaining="44"/></Telemetry_Leaderboard>`
	many := `<Telemetry_Leaderboard><Position Car="5" Rank="3" speed="221.75" rpm="11250" throttle="98" brake="0" Battery_Pct_Remaining="44"></Position></Telemetry_Leaderboard>`

	a, err := Decode(model.KindTelemetry, []byte(single))
	require.NoError(t, err)
	b, err := Decode(model.KindTelemetry, []byte(many))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a.(model.TelemetrySnapshot).Cars, 1)

	lbSingle := `<Unofficial_Leaderboard><Position Car="12" Rank="1" Laps_Behind="0" Time_Behind="0.0"/></Unofficial_Leaderboard>`
	lb, err := Decode(model.KindLeaderboard, []byte(lbSingle))
	require.NoError(t, err)
	assert.Equal(t, []model.LeaderboardEntry{{CarNum: "12", Rank: 1}}, lb.(model.LeaderboardSnapshot).Entries)
}

func TestDecode_EmptySnapshot(t *testing.T) {
	msg, err := Decode(model.KindLeaderboard, []byte(`<Unofficial_Leaderboard Flag="G"></Unofficial_Leaderboard>`))
	require.NoError(t, err)
	assert.Empty(t, msg.(model.LeaderboardSnapshot).Entries)
}

func TestDecode_CompletedLap(t *testing.T) {
	block := `<Completed_Lap Car="12" Fastest_Lap="39.8012" Lap_Number="17" Lap_Time="40.1234" Time="702.5" Laps_Behind_Leader="1" Time_Behind_Leader="3.5"/>`
	msg, err := Decode(model.KindCompletedLap, []byte(block))
	require.NoError(t, err)
	assert.Equal(t, model.LapCompleted{
		CarNum: "12", FastestLap: 39.8012, LapNumber: 17, LapTime: 40.1234,
		TotalTime: 702.5, LapsBehindLeader: 1, TimeBehindLeader: 3.5,
	}, msg)
}

func TestDecode_PitSummary(t *testing.T) {
	msg, err := Decode(model.KindPitSummary, []byte(`<Pit_Summary Car="9" Pit_Stop_Number="2" In_Lap="40"></Pit_Summary>`))
	require.NoError(t, err)
	pit := msg.(model.PitSummary)
	assert.Equal(t, "9", pit.CarNum)
	assert.Equal(t, 2, pit.PitStopNumber)
	assert.Equal(t, "40", pit.Attrs["In_Lap"])
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name      string
		kind      model.Kind
		block     string
		wantField string
		wantValue string
		wantErr   error
	}{
		{
			name:      "invalid float",
			kind:      model.KindLeaderboard,
			block:     `<Unofficial_Leaderboard><Position Car="12" Rank="1" Laps_Behind="0" Time_Behind="abc"/></Unofficial_Leaderboard>`,
			wantField: "Time_Behind", wantValue: "abc", wantErr: ErrInvalidField,
		},
		{
			name:      "integer with fraction",
			kind:      model.KindTelemetry,
			block:     `<Telemetry_Leaderboard><Position Car="12" Rank="1.5"/></Telemetry_Leaderboard>`,
			wantField: "Rank", wantValue: "1.5", wantErr: ErrInvalidField,
		},
		{
			name:      "missing car",
			kind:      model.KindCompletedLap,
			block:     `<Completed_Lap Lap_Number="3"/>`,
			wantField: "Car", wantErr: ErrMissingField,
		},
		{
			name:    "unbalanced",
			kind:    model.KindLeaderboard,
			block:   `<Unofficial_Leaderboard><Position Car="12"></Unofficial_Leaderboard>`,
			wantErr: ErrSyntax,
		},
		{
			name:    "wrong root",
			kind:    model.KindPitSummary,
			block:   `<Completed_Lap Car="1"/>`,
			wantErr: ErrSyntax,
		},
		{
			name:    "empty",
			kind:    model.KindPitSummary,
			block:   ``,
			wantErr: ErrSyntax,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(tt.kind, []byte(tt.block))
			assert.Nil(t, msg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			var decErr *DecodeError
			require.True(t, errors.As(err, &decErr))
			assert.Equal(t, tt.kind, decErr.Kind)
			assert.Equal(t, tt.wantField, decErr.Field)
			assert.Equal(t, tt.wantValue, decErr.Value)
		})
	}
}
