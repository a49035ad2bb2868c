package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcast_AllListenersReceive(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source)
	defer b.Close()
	l1 := b.Subscribe()
	l2 := b.Subscribe()

	got := make(chan int, 2)
	for _, l := range []<-chan int{l1, l2} {
		go func(ch <-chan int) {
			for v := range ch {
				got <- v
			}
		}(l)
	}
	source <- 42
	for range 2 {
		select {
		case v := <-got:
			assert.Equal(t, 42, v)
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
}

func TestBroadcast_SlowListenerIsSkipped(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source, WithSendTimeout[int](10*time.Millisecond))
	defer b.Close()
	slow := b.Subscribe()
	fast := b.Subscribe()

	received := make(chan int, 1)
	go func() {
		for v := range fast {
			received <- v
		}
	}()
	source <- 1
	select {
	case v := <-received:
		assert.Equal(t, 1, v)
	case <-time.After(time.Second):
		t.Fatal("fast listener blocked by slow one")
	}
	_ = slow
}

func TestBroadcast_CloseClosesListeners(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source)
	l := b.Subscribe()
	b.Close()
	select {
	case _, ok := <-l:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("listener not closed")
	}
	after := b.Subscribe()
	_, ok := <-after
	require.False(t, ok, "subscribe after close returns closed channel")
}

func TestBroadcast_CancelSubscription(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source)
	defer b.Close()
	l := b.Subscribe()
	b.CancelSubscription(l)
	_, ok := <-l
	assert.False(t, ok)
}
