package gate

import (
	"context"
	"sync"
	"time"

	"github.com/mpapenbr/livetiming-relay/log"
)

// Control is the externally supplied publication state.
type Control struct {
	Online    bool
	TargetCar string
}

// ControlSource delivers the current Control on request.
type ControlSource interface {
	Poll(ctx context.Context) (Control, error)
}

// Heartbeater is implemented by control sources that accept a liveness
// timestamp while the relay is online.
type Heartbeater interface {
	Heartbeat(ctx context.Context, ts time.Time) error
}

// LiveDataResetter clears live race data when the gate goes offline.
type LiveDataResetter interface {
	ResetLive()
}

type Gate struct {
	mu        sync.RWMutex
	online    bool
	targetCar string
	resetter  LiveDataResetter
	onChange  func(online bool)
	l         *log.Logger
}

type Option func(g *Gate)

func WithLogger(l *log.Logger) Option {
	return func(g *Gate) {
		g.l = l
	}
}

// WithOnlineListener registers f to be called on each online state change.
func WithOnlineListener(f func(online bool)) Option {
	return func(g *Gate) {
		g.onChange = f
	}
}

// NewGate creates a gate in offline state.
func NewGate(resetter LiveDataResetter, opts ...Option) *Gate {
	ret := &Gate{
		resetter: resetter,
		l:        log.Default().Named("gate"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Set applies c. A transition from online to offline clears the live data.
// Returns true if the online state changed.
func (g *Gate) Set(c Control) bool {
	g.mu.Lock()
	wasOnline := g.online
	g.online = c.Online
	if c.TargetCar != g.targetCar {
		g.l.Info("target car changed",
			log.String("from", g.targetCar), log.String("to", c.TargetCar))
		g.targetCar = c.TargetCar
	}
	g.mu.Unlock()

	switch {
	case wasOnline && !c.Online:
		g.l.Info("gate offline, clearing live data")
		if g.resetter != nil {
			g.resetter.ResetLive()
		}
	case !wasOnline && c.Online:
		g.l.Info("gate online", log.String("targetCar", c.TargetCar))
	}
	changed := wasOnline != c.Online
	if changed && g.onChange != nil {
		g.onChange(c.Online)
	}
	return changed
}

// State returns the online flag and the current target car.
func (g *Gate) State() (online bool, targetCar string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.online, g.targetCar
}

func (g *Gate) Online() bool {
	online, _ := g.State()
	return online
}

// StaticSource always returns the same Control.
type StaticSource struct {
	Control Control
}

func (s StaticSource) Poll(ctx context.Context) (Control, error) {
	return s.Control, nil
}
