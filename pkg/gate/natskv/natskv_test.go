package natskv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/livetiming-relay/pkg/gate"
	"github.com/mpapenbr/livetiming-relay/testsupport/tcnats"
)

func TestSource(t *testing.T) {
	nc := tcnats.SetupNats(t)
	ctx := context.Background()
	s, err := New(ctx, nc, WithBucket("test_control"), WithPrefix("race1"))
	require.NoError(t, err)

	c, err := s.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, gate.Control{}, c, "missing keys mean offline")

	require.NoError(t, s.SetControl(ctx, gate.Control{Online: true, TargetCar: "9"}))
	c, err = s.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, gate.Control{Online: true, TargetCar: "9"}, c)

	ts := time.Date(2025, 5, 25, 17, 0, 0, 0, time.UTC)
	require.NoError(t, s.Heartbeat(ctx, ts))
	kve, err := s.kv.Get(ctx, "race1.heartbeat")
	require.NoError(t, err)
	assert.Equal(t, "2025-05-25T17:00:00Z", string(kve.Value()))

	_, err = s.kv.PutString(ctx, "race1.online", "maybe")
	require.NoError(t, err)
	_, err = s.Poll(ctx)
	assert.Error(t, err)
}
