//nolint:funlen // ok for tests
package check

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/livetiming-relay/pkg/feed/frame"
	"github.com/mpapenbr/livetiming-relay/pkg/model"
	"github.com/mpapenbr/livetiming-relay/testsupport/feeddata"
)

func arrival() []frame.Option {
	return []frame.Option{frame.WithPolicy(frame.PolicyArrival)}
}

func TestReplayRace(t *testing.T) {
	snap, err := replay(context.Background(), bytes.NewReader(feeddata.Race()),
		replayOptions{targetCar: "9", frameOpts: arrival()})
	require.NoError(t, err)

	cars := make([]string, 0, len(snap.Leaderboard))
	for _, e := range snap.Leaderboard {
		cars = append(cars, e.CarNum)
	}
	assert.Equal(t, []string{"12", "9", "27"}, cars)
	require.Len(t, snap.Rows, 3)
	assert.Equal(t, "+1.234", snap.Rows[1].IntervalSplit)

	assert.Equal(t, 3, snap.Laps["9"].LastLapNumber.GetOr(0))
	assert.Equal(t, model.DeltaImproved, snap.Laps["9"].LastLapDelta.Sign)
	assert.Equal(t, model.DeltaWorsened, snap.Laps["12"].LastLapDelta.Sign)
	assert.Equal(t, 1, snap.Laps["27"].LapsBehindLeader.GetOr(0))

	require.NotNil(t, snap.Target)
	assert.Equal(t, "9", snap.Target.CarNum)
	require.NotNil(t, snap.DriverInfo)
	assert.Equal(t, 2, snap.DriverInfo.Rank)
}

func TestReplayChunkInvariance(t *testing.T) {
	whole, err := replay(context.Background(), bytes.NewReader(feeddata.Race()),
		replayOptions{targetCar: "12", frameOpts: arrival()})
	require.NoError(t, err)
	for _, size := range []int{1, 7, 64, 500} {
		chunked, err := replay(context.Background(), bytes.NewReader(feeddata.Race()),
			replayOptions{targetCar: "12", chunkSize: size, frameOpts: arrival()})
		require.NoError(t, err)
		if diff := cmp.Diff(whole.Rows, chunked.Rows); diff != "" {
			t.Errorf("chunk size %d: rows mismatch (-want +got):\n%s", size, diff)
		}
		if diff := cmp.Diff(whole.Leaderboard, chunked.Leaderboard); diff != "" {
			t.Errorf("chunk size %d: leaderboard mismatch (-want +got):\n%s", size, diff)
		}
	}
}

func TestRenderLeaderboard(t *testing.T) {
	snap, err := replay(context.Background(), bytes.NewReader(feeddata.Race()),
		replayOptions{targetCar: "9", frameOpts: arrival()})
	require.NoError(t, err)
	var buf bytes.Buffer
	renderLeaderboard(&buf, snap)
	renderDriverInfo(&buf, snap.DriverInfo)
	out := buf.String()
	assert.Contains(t, out, "Leaderboard (3 cars)")
	assert.Contains(t, out, "+1.234")
	assert.Contains(t, out, "Driver info car 9")
}

func TestCheckFeedJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "race.feed")
	require.NoError(t, os.WriteFile(file, feeddata.Race(), 0o600))

	targetCar, scanPolicy, outputJSON = "12", "arrival", true
	t.Cleanup(func() { targetCar, scanPolicy, outputJSON = "", "arrival", false })

	var buf bytes.Buffer
	require.NoError(t, checkFeed(context.Background(), &buf, file))
	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &snap))
	assert.Equal(t, "12", snap.TargetCar)
	assert.Len(t, snap.Leaderboard, 3)
}

func TestCheckFeedMissingFile(t *testing.T) {
	err := checkFeed(context.Background(), &bytes.Buffer{}, filepath.Join(t.TempDir(), "none"))
	assert.Error(t, err)
}
