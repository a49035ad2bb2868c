package pgsink

import (
	"context"
	"testing"

	"github.com/aarondl/opt/null"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
	"github.com/mpapenbr/livetiming-relay/pkg/repository/lap"
	"github.com/mpapenbr/livetiming-relay/pkg/repository/snapshot"
	"github.com/mpapenbr/livetiming-relay/testsupport/basedata"
	"github.com/mpapenbr/livetiming-relay/testsupport/testdb"
)

func withLap(snap *model.Snapshot, carNum string, lapNo int, lapTime float64) {
	rec := model.NewPlaceholderLapRecord(carNum)
	rec.LastLapNumber = null.From(lapNo)
	rec.LastLapTime = null.From(lapTime)
	snap.Laps[carNum] = rec
}

func TestSink_Publish(t *testing.T) {
	pool := testdb.InitTestDb(t)
	ctx := context.Background()
	s, err := New(ctx, pool, "feed:50000", WithSnapshots(true))
	assert.NilError(t, err)
	assert.Equal(t, s.Name(), "postgres")

	snap := basedata.SampleSnapshot()
	assert.NilError(t, s.Publish(ctx, snap))
	laps, err := lap.LoadLatest(ctx, pool, s.Session().ID)
	assert.NilError(t, err)
	assert.Equal(t, len(laps), 0, "placeholders are not stored")

	withLap(snap, "9", 1, 61.0)
	assert.NilError(t, s.Publish(ctx, snap))
	assert.NilError(t, s.Publish(ctx, snap))
	withLap(snap, "9", 2, 60.5)
	assert.NilError(t, s.Publish(ctx, snap))

	laps, err = lap.LoadByCar(ctx, pool, s.Session().ID, "9")
	assert.NilError(t, err)
	assert.Equal(t, len(laps), 2)

	count, err := snapshot.CountBySession(ctx, pool, s.Session().ID)
	assert.NilError(t, err)
	assert.Equal(t, count, 4)
}

func TestSink_NewLaps(t *testing.T) {
	s := &Sink{storedLaps: map[string]int{"9": 3}}
	snap := &model.Snapshot{Laps: map[string]model.LapRecord{}}
	withLap(snap, "9", 3, 60)
	withLap(snap, "12", 1, 60)
	snap.Laps["3"] = model.NewPlaceholderLapRecord("3")

	got := s.newLaps(snap)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].CarNum, "12")
}
