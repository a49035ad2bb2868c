//nolint:funlen,lll // ok for tests
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/livetiming-relay/log"
	"github.com/mpapenbr/livetiming-relay/pkg/feed/frame"
	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

const (
	sampleLeaderboard = `<Unofficial_Leaderboard><Position Car="12" Rank="1" Laps_Behind="0" Time_Behind="0.0"/><Position Car="9" Rank="2" Laps_Behind="0" Time_Behind="1.234"/></Unofficial_Leaderboard>`
	samplePit         = `<Pit_Summary Car="9" Pit_Stop_Number="1"></Pit_Summary>`
	sampleTelemetry   = `<Telemetry_Leaderboard Elapsed_Time="1"><Position Car="12" Rank="1" speed="220.5" rpm="11000" throttle="100" brake="0" Battery_Pct_Remaining="80"/></Telemetry_Leaderboard>`
	brokenLap         = `<Completed_Lap Car="12" Lap_Number="abc"/>`
)

type recorder struct {
	mu   sync.Mutex
	msgs []model.Message
}

func (r *recorder) Apply(msg model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) kinds() []model.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := make([]model.Kind, 0, len(r.msgs))
	for _, m := range r.msgs {
		ret = append(ret, m.Kind())
	}
	return ret
}

func TestConsume(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []model.Kind
	}{
		{
			name:  "single",
			input: sampleLeaderboard,
			want:  []model.Kind{model.KindLeaderboard},
		},
		{
			name:  "with noise",
			input: "garbage" + samplePit + "\r\n" + sampleLeaderboard,
			want:  []model.Kind{model.KindPitSummary, model.KindLeaderboard},
		},
		{
			name:  "decode error is skipped",
			input: brokenLap + samplePit,
			want:  []model.Kind{model.KindPitSummary},
		},
		{
			name:  "incomplete tail",
			input: samplePit + sampleLeaderboard[:30],
			want:  []model.Kind{model.KindPitSummary},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			c, err := NewClient("unused:0", rec)
			require.NoError(t, err)
			err = c.Consume(context.Background(), strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrConnectionClosed)
			assert.Equal(t, tt.want, rec.kinds())
		})
	}
}

func TestConsumeReportsSkippedMessages(t *testing.T) {
	var buf bytes.Buffer
	rec := &recorder{}
	c, err := NewClient("unused:0", rec, WithLogger(log.New(&buf, log.InfoLevel)))
	require.NoError(t, err)
	err = c.Consume(context.Background(),
		strings.NewReader(samplePit+"\r\n"+sampleTelemetry))
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.Equal(t, []model.Kind{model.KindTelemetry}, rec.kinds())

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		if m["msg"] == "skipped messages in front of block" {
			entry = m
		}
	}
	require.NotNil(t, entry, "no warning in %q", buf.String())
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, string(model.KindTelemetry), entry["block"])
	assert.EqualValues(t, len(samplePit)+2, entry["bytes"])
	assert.Equal(t, []any{string(model.KindPitSummary)}, entry["kinds"])
}

func TestConsumeOverflow(t *testing.T) {
	rec := &recorder{}
	c, err := NewClient("unused:0", rec, WithFrameOptions(frame.WithMaxPending(16)))
	require.NoError(t, err)
	err = c.Consume(context.Background(), strings.NewReader(sampleLeaderboard[:40]))
	assert.ErrorIs(t, err, frame.ErrBufferOverflow)
}

func TestNewClientInvalidFrameOptions(t *testing.T) {
	_, err := NewClient("unused:0", &recorder{},
		WithFrameOptions(frame.WithKindOrder([]model.Kind{"Unknown"})))
	assert.Error(t, err)
}

func TestRunReconnects(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for i := 0; i < 2; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			// split the message across writes
			_, _ = conn.Write([]byte(sampleLeaderboard[:20]))
			time.Sleep(10 * time.Millisecond)
			_, _ = conn.Write([]byte(sampleLeaderboard[20:]))
			conn.Close()
		}
	}()

	var statusMu sync.Mutex
	connects := 0
	rec := &recorder{}
	c, err := NewClient(ln.Addr().String(), rec,
		WithReconnectDelay(20*time.Millisecond),
		WithStatusFunc(func(connected bool) {
			statusMu.Lock()
			defer statusMu.Unlock()
			if connected {
				connects++
			}
		}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(rec.kinds()) == 2 },
		2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop")
	}
	statusMu.Lock()
	defer statusMu.Unlock()
	assert.GreaterOrEqual(t, connects, 2)
}
