//nolint:funlen,lll // ok for tests
package frame

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

const (
	sampleLeaderboard = `<Unofficial_Leaderboard><Position Car="12" Rank="1" Laps_Behind="0" Time_Behind="0.0"/><Position Car="9" Rank="2" Laps_Behind="0" Time_Behind="1.234"/></Unofficial_Leaderboard>`
	sampleTelemetry   = `<Telemetry_Leaderboard Elapsed_Time="1"><Position Car="12" Rank="1" speed="220.5" rpm="11000" throttle="100" brake="0" Battery_Pct_Remaining="80"/></Telemetry_Leaderboard>`
	sampleLap         = `<Completed_Lap Car="12" Fastest_Lap="40.1" Lap_Number="3" Lap_Time="40.5" Time="121.3" Laps_Behind_Leader="0" Time_Behind_Leader="0.0"/>`
	samplePit         = `<Pit_Summary Car="9" Pit_Stop_Number="1"></Pit_Summary>`
)

func newExtractor(t *testing.T, opts ...Option) *Extractor {
	t.Helper()
	e, err := NewExtractor(opts...)
	require.NoError(t, err)
	return e
}

func feedChunks(t *testing.T, e *Extractor, data string, sizes ...int) []Block {
	t.Helper()
	ret := make([]Block, 0)
	pos := 0
	for _, s := range sizes {
		if pos+s > len(data) {
			s = len(data) - pos
		}
		require.NoError(t, e.Feed([]byte(data[pos:pos+s])))
		ret = append(ret, e.Drain()...)
		pos += s
	}
	require.NoError(t, e.Feed([]byte(data[pos:])))
	return append(ret, e.Drain()...)
}

func TestExtractor_SingleMessage(t *testing.T) {
	e := newExtractor(t)
	require.NoError(t, e.Feed([]byte(sampleLeaderboard)))
	blocks := e.Drain()
	require.Len(t, blocks, 1)
	assert.Equal(t, model.KindLeaderboard, blocks[0].Kind)
	assert.Equal(t, sampleLeaderboard, string(blocks[0].Data))
	assert.Equal(t, 0, e.Pending())
	assert.Empty(t, e.Drain())
}

func TestExtractor_Incomplete(t *testing.T) {
	e := newExtractor(t)
	require.NoError(t, e.Feed([]byte(sampleLeaderboard[:40])))
	assert.Empty(t, e.Drain())
	assert.Equal(t, 40, e.Pending())

	require.NoError(t, e.Feed([]byte(sampleLeaderboard[40:])))
	blocks := e.Drain()
	require.Len(t, blocks, 1)
	assert.Equal(t, sampleLeaderboard, string(blocks[0].Data))
}

func TestExtractor_NoStartMarkerKeepsBytes(t *testing.T) {
	e := newExtractor(t)
	require.NoError(t, e.Feed([]byte("<Unofficial_Lead")))
	assert.Empty(t, e.Drain())
	assert.Equal(t, 16, e.Pending())
}

func TestExtractor_ChunkBoundaryInvariance(t *testing.T) {
	stream := sampleTelemetry + samplePit + sampleLeaderboard + sampleLap
	splits := [][]int{
		{1},
		{7, 3, 90},
		{len(sampleTelemetry) - 1, 2},
		{len(sampleTelemetry) + 5, 10, 10, 10},
		{200, 1, 1, 1, 1},
	}
	for _, policy := range []Policy{PolicyPriority, PolicyArrival} {
		whole := newExtractor(t, WithPolicy(policy))
		require.NoError(t, whole.Feed([]byte(stream)))
		want := whole.Drain()
		require.Len(t, want, 4)

		for _, s := range splits {
			got := feedChunks(t, newExtractor(t, WithPolicy(policy)), stream, s...)
			assert.Equal(t, want, got, "policy %v split %v", policy, s)
		}
		// byte by byte
		sizes := make([]int, len(stream))
		for i := range sizes {
			sizes[i] = 1
		}
		got := feedChunks(t, newExtractor(t, WithPolicy(policy)), stream, sizes...)
		assert.Equal(t, want, got)
	}
}

func TestExtractor_ArrivalInvarianceMixedOrder(t *testing.T) {
	// lower priority kinds first: the arrival policy keeps all of them
	stream := sampleLap + sampleLeaderboard + samplePit + sampleTelemetry
	whole := newExtractor(t, WithPolicy(PolicyArrival))
	require.NoError(t, whole.Feed([]byte(stream)))
	want := whole.Drain()
	require.Len(t, want, 4)
	assert.Equal(t, []model.Kind{
		model.KindCompletedLap, model.KindLeaderboard, model.KindPitSummary, model.KindTelemetry,
	}, kinds(want))

	for i := 1; i < len(stream); i++ {
		got := feedChunks(t, newExtractor(t, WithPolicy(PolicyArrival)), stream, i)
		assert.Equal(t, want, got, "split at %d", i)
	}
}

func TestExtractor_PriorityWins(t *testing.T) {
	// with the priority policy the telemetry block is handled first and
	// everything in front of it is consumed
	e := newExtractor(t)
	require.NoError(t, e.Feed([]byte(sampleLap+sampleTelemetry)))
	blocks := e.Drain()
	assert.Equal(t, []model.Kind{model.KindTelemetry}, kinds(blocks))
	assert.Equal(t, []Discard{{
		Bytes:  len(sampleLap),
		Kinds:  []model.Kind{model.KindCompletedLap},
		Before: model.KindTelemetry,
	}}, e.Discarded())
	assert.Empty(t, e.Discarded())

	require.NoError(t, e.Feed([]byte(sampleLap+samplePit+sampleTelemetry)))
	assert.Equal(t, []model.Kind{model.KindTelemetry}, kinds(e.Drain()))
	assert.Equal(t, 0, e.Pending())
	discards := e.Discarded()
	require.Len(t, discards, 1)
	assert.Equal(t, len(sampleLap)+len(samplePit), discards[0].Bytes)
	assert.ElementsMatch(t,
		[]model.Kind{model.KindCompletedLap, model.KindPitSummary}, discards[0].Kinds)

	other := newExtractor(t, WithKindOrder([]model.Kind{
		model.KindCompletedLap, model.KindLeaderboard, model.KindPitSummary, model.KindTelemetry,
	}))
	require.NoError(t, other.Feed([]byte(sampleLap+sampleTelemetry)))
	assert.Equal(t, []model.Kind{model.KindCompletedLap, model.KindTelemetry}, kinds(other.Drain()))
	assert.Empty(t, other.Discarded())
}

func TestExtractor_NoiseIsNotReported(t *testing.T) {
	for _, policy := range []Policy{PolicyPriority, PolicyArrival} {
		e := newExtractor(t, WithPolicy(policy))
		require.NoError(t, e.Feed([]byte("garbage\r\n"+samplePit)))
		assert.Equal(t, []model.Kind{model.KindPitSummary}, kinds(e.Drain()))
		assert.Empty(t, e.Discarded())
	}
}

func TestExtractor_PriorityIncompleteBlocksOtherKinds(t *testing.T) {
	e := newExtractor(t)
	require.NoError(t, e.Feed([]byte(sampleLap+sampleTelemetry[:30])))
	assert.Empty(t, e.Drain())
	require.NoError(t, e.Feed([]byte(sampleTelemetry[30:])))
	assert.Equal(t, []model.Kind{model.KindTelemetry}, kinds(e.Drain()))
}

func TestExtractor_Overflow(t *testing.T) {
	e := newExtractor(t, WithMaxPending(32))
	require.NoError(t, e.Feed([]byte(sampleLap)))
	assert.Len(t, e.Drain(), 1)
	err := e.Feed([]byte(sampleLeaderboard[:40]))
	assert.True(t, errors.Is(err, ErrBufferOverflow))

	e.Reset()
	assert.Equal(t, 0, e.Pending())
}

func TestParseKindOrder(t *testing.T) {
	order, err := ParseKindOrder([]string{"Completed_Lap", "Unofficial_Leaderboard", "Pit_Summary", "Telemetry_Leaderboard"})
	require.NoError(t, err)
	assert.Equal(t, model.KindCompletedLap, order[0])

	_, err = ParseKindOrder([]string{"Completed_Lap"})
	assert.Error(t, err)
	_, err = ParseKindOrder([]string{"Completed_Lap", "Completed_Lap", "Pit_Summary", "Telemetry_Leaderboard"})
	assert.Error(t, err)
	_, err = ParseKindOrder([]string{"Bogus", "Unofficial_Leaderboard", "Pit_Summary", "Telemetry_Leaderboard"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func kinds(blocks []Block) []model.Kind {
	ret := make([]model.Kind, 0, len(blocks))
	for _, b := range blocks {
		ret = append(ret, b.Kind)
	}
	return ret
}
