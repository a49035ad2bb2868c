package gate

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/livetiming-relay/log"
)

const DefaultPollInterval = 5 * time.Second

// Poller periodically reads the control source and applies the result to
// the gate. A failed poll sets the gate offline.
type Poller struct {
	gate              *Gate
	source            ControlSource
	interval          time.Duration
	heartbeatInterval time.Duration
	lastHeartbeat     time.Time
	now               func() time.Time
	pollErrors        metric.Int64Counter
	l                 *log.Logger
}

type PollerOption func(p *Poller)

func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithHeartbeatInterval sets the minimum duration between two heartbeats.
// 0 sends a heartbeat on each poll while online, negative values disable it.
func WithHeartbeatInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.heartbeatInterval = d
	}
}

func WithPollerLogger(l *log.Logger) PollerOption {
	return func(p *Poller) {
		p.l = l
	}
}

func WithClock(now func() time.Time) PollerOption {
	return func(p *Poller) {
		p.now = now
	}
}

func NewPoller(g *Gate, source ControlSource, opts ...PollerOption) *Poller {
	ret := &Poller{
		gate:     g,
		source:   source,
		interval: DefaultPollInterval,
		now:      time.Now,
		l:        log.Default().Named("gate.poller"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	var err error
	ret.pollErrors, err = otel.GetMeterProvider().Meter("ltr.gate").Int64Counter(
		"ltr.gate.poll.errors",
		metric.WithDescription("Number of failed control source polls"),
		metric.WithUnit("{count}"))
	if err != nil {
		ret.l.Warn("could not create metric", log.ErrorField(err))
	}
	return ret
}

// Run polls until ctx is done. The first poll happens immediately.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			p.l.Debug("poller stopped")
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

func (p *Poller) PollOnce(ctx context.Context) {
	c, err := p.source.Poll(ctx)
	if err != nil {
		p.l.Warn("control source poll failed, assuming offline", log.ErrorField(err))
		if p.pollErrors != nil {
			p.pollErrors.Add(ctx, 1)
		}
		_, target := p.gate.State()
		p.gate.Set(Control{Online: false, TargetCar: target})
		return
	}
	p.gate.Set(c)
	if c.Online {
		p.heartbeat(ctx)
	}
}

func (p *Poller) heartbeat(ctx context.Context) {
	hb, ok := p.source.(Heartbeater)
	if !ok || p.heartbeatInterval < 0 {
		return
	}
	now := p.now()
	if !p.lastHeartbeat.IsZero() && now.Sub(p.lastHeartbeat) < p.heartbeatInterval {
		return
	}
	if err := hb.Heartbeat(ctx, now); err != nil {
		p.l.Warn("heartbeat failed", log.ErrorField(err))
		return
	}
	p.lastHeartbeat = now
}
