package sink

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/livetiming-relay/log"
	"github.com/mpapenbr/livetiming-relay/pkg/model"
	"github.com/mpapenbr/livetiming-relay/pkg/utils/broadcast"
)

const DefaultInterval = time.Second

// SnapshotSource provides the current race state for a target car.
type SnapshotSource interface {
	Snapshot(targetCar string) *model.Snapshot
}

// GateState reports if publishing is enabled and for which target car.
type GateState interface {
	State() (online bool, targetCar string)
}

// Publisher takes a snapshot on every tick while the gate is online and
// hands it to all sinks. Each sink runs in its own goroutine, a slow sink
// skips snapshots instead of delaying the others.
type Publisher struct {
	source   SnapshotSource
	gate     GateState
	sinks    []Sink
	interval time.Duration
	tracer   trace.Tracer
	failures metric.Int64Counter
	l        *log.Logger
}

type Option func(p *Publisher)

func WithInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Publisher) {
		p.l = l
	}
}

//nolint:whitespace // can't make both editor and linter happy
func NewPublisher(
	source SnapshotSource, gate GateState, sinks []Sink, opts ...Option,
) *Publisher {
	ret := &Publisher{
		source:   source,
		gate:     gate,
		sinks:    sinks,
		interval: DefaultInterval,
		tracer:   otel.Tracer("ltr.sink"),
		l:        log.Default().Named("sink"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	var err error
	ret.failures, err = otel.GetMeterProvider().Meter("ltr.sink").Int64Counter(
		"ltr.sink.failures",
		metric.WithDescription("Number of failed sink publications"),
		metric.WithUnit("{count}"))
	if err != nil {
		ret.l.Warn("could not create metric", log.ErrorField(err))
	}
	return ret
}

// Run publishes until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	snapshots := make(chan *model.Snapshot)
	bcst := broadcast.NewBroadcastServer("snapshots", snapshots,
		broadcast.WithSendTimeout[*model.Snapshot](p.interval/2),
		broadcast.WithLogger[*model.Snapshot](p.l.Named("broadcast")))
	wg := sync.WaitGroup{}
	for _, s := range p.sinks {
		ch := bcst.Subscribe()
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			for snap := range ch {
				p.deliver(ctx, s, snap)
			}
			p.l.Debug("sink stopped", log.String("sink", s.Name()))
		}(s)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			bcst.Close()
			wg.Wait()
			p.l.Info("publisher stopped")
			return
		case <-ticker.C:
			snap := p.take()
			if snap == nil {
				continue
			}
			select {
			case snapshots <- snap:
			case <-ctx.Done():
			}
		}
	}
}

// take returns nil while the gate is offline. A snapshot taken while the
// gate switched state is dropped.
func (p *Publisher) take() *model.Snapshot {
	online, target := p.gate.State()
	if !online {
		return nil
	}
	snap := p.source.Snapshot(target)
	if stillOnline, current := p.gate.State(); !stillOnline || current != target {
		p.l.Debug("gate changed during snapshot, skipping",
			log.Bool("online", stillOnline), log.String("targetCar", current))
		return nil
	}
	return snap
}

// PublishOnce delivers a single snapshot synchronously to all sinks.
// Returns false if the gate is offline.
func (p *Publisher) PublishOnce(ctx context.Context) bool {
	snap := p.take()
	if snap == nil {
		return false
	}
	for _, s := range p.sinks {
		p.deliver(ctx, s, snap)
	}
	return true
}

func (p *Publisher) deliver(ctx context.Context, s Sink, snap *model.Snapshot) {
	spanCtx, span := p.tracer.Start(ctx, "sink.publish",
		trace.WithAttributes(
			attribute.String("sink", s.Name()),
			attribute.String("targetCar", snap.TargetCar)))
	defer span.End()
	if err := s.Publish(spanCtx, snap); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if p.failures != nil {
			p.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("sink", s.Name())))
		}
		p.l.Error("sink failed", log.String("sink", s.Name()), log.ErrorField(err))
	}
}

// Close closes all sinks that hold resources.
func (p *Publisher) Close() {
	for _, s := range p.sinks {
		if c, ok := s.(Closer); ok {
			if err := c.Close(); err != nil {
				p.l.Warn("error closing sink", log.String("sink", s.Name()), log.ErrorField(err))
			}
		}
	}
}
