package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

type fakeGate struct {
	mu     sync.Mutex
	online bool
	target string
}

func (g *fakeGate) State() (online bool, targetCar string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.online, g.target
}

func (g *fakeGate) set(online bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.online = online
}

type fakeSource struct{}

func (fakeSource) Snapshot(targetCar string) *model.Snapshot {
	return &model.Snapshot{TargetCar: targetCar}
}

type recordingSink struct {
	name string
	err  error
	mu   sync.Mutex
	got  []*model.Snapshot
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Publish(ctx context.Context, snap *model.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, snap)
	return r.err
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestPublisher_PublishOnce(t *testing.T) {
	g := &fakeGate{target: "9"}
	failing := &recordingSink{name: "failing", err: errors.New("unavailable")}
	ok := &recordingSink{name: "ok"}
	p := NewPublisher(fakeSource{}, g, []Sink{failing, ok})

	assert.False(t, p.PublishOnce(context.Background()), "gate offline")
	assert.Equal(t, 0, ok.count())

	g.set(true)
	assert.True(t, p.PublishOnce(context.Background()))
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, ok.count(), "failing sink does not affect others")
	assert.Equal(t, "9", ok.got[0].TargetCar)
}

// switchingSource flips the gate offline while the snapshot is taken.
type switchingSource struct {
	gate *fakeGate
}

func (s switchingSource) Snapshot(targetCar string) *model.Snapshot {
	s.gate.set(false)
	return &model.Snapshot{TargetCar: targetCar}
}

func TestPublisher_GateSwitchDuringSnapshot(t *testing.T) {
	g := &fakeGate{online: true, target: "9"}
	s := &recordingSink{name: "s"}
	p := NewPublisher(switchingSource{gate: g}, g, []Sink{s})

	assert.False(t, p.PublishOnce(context.Background()))
	assert.Equal(t, 0, s.count())
}

func TestPublisher_Run(t *testing.T) {
	g := &fakeGate{online: true, target: "12"}
	s1 := &recordingSink{name: "s1"}
	s2 := &recordingSink{name: "s2", err: errors.New("boom")}
	p := NewPublisher(fakeSource{}, g, []Sink{s1, s2}, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	assert.Eventually(t, func() bool { return s1.count() >= 3 && s2.count() >= 3 },
		time.Second, 5*time.Millisecond)

	g.set(false)
	time.Sleep(30 * time.Millisecond)
	before := s1.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, s1.count(), "nothing published while offline")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}
}
