package processing

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/livetiming-relay/log"
	"github.com/mpapenbr/livetiming-relay/pkg/model"
	"github.com/mpapenbr/livetiming-relay/pkg/processing/car"
	"github.com/mpapenbr/livetiming-relay/pkg/processing/race"
	"github.com/mpapenbr/livetiming-relay/pkg/processing/util"
)

var ErrUnsupportedMessage = errors.New("unsupported message")

// Processor owns the race state. All Apply methods complete under a write
// lock, Snapshot works on a copy taken under a read lock. Readers never see
// a partially applied message.
type Processor struct {
	mu            sync.RWMutex
	reference     *model.ReferenceData
	carProcessor  *car.CarProcessor
	raceProcessor *race.RaceProcessor
	splitTrend    *util.SplitTrend
	now           func() time.Time
	l             *log.Logger
}

type ProcessorOption func(proc *Processor)

// WithReferenceData decorates snapshots with driver data and creates
// placeholder lap records for all known cars.
func WithReferenceData(ref *model.ReferenceData) ProcessorOption {
	return func(proc *Processor) {
		proc.reference = ref
	}
}

func WithLogger(l *log.Logger) ProcessorOption {
	return func(proc *Processor) {
		proc.l = l
	}
}

func WithClock(now func() time.Time) ProcessorOption {
	return func(proc *Processor) {
		proc.now = now
	}
}

func NewProcessor(opts ...ProcessorOption) *Processor {
	ret := &Processor{
		splitTrend: util.NewSplitTrend(),
		now:        time.Now,
		l:          log.Default().Named("processor"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	knownCars := make([]string, 0)
	if ret.reference != nil {
		knownCars = lo.Keys(ret.reference.Drivers)
	}
	ret.carProcessor = car.NewCarProcessor(car.WithLogger(ret.l.Named("car")))
	ret.raceProcessor = race.NewRaceProcessor(
		race.WithLogger(ret.l.Named("race")),
		race.WithKnownCars(knownCars))
	return ret
}

// Apply dispatches msg to the matching Apply method.
func (p *Processor) Apply(msg model.Message) error {
	switch m := msg.(type) {
	case model.TelemetrySnapshot:
		p.ApplyTelemetry(&m)
	case *model.TelemetrySnapshot:
		p.ApplyTelemetry(m)
	case model.LeaderboardSnapshot:
		p.ApplyLeaderboard(&m)
	case *model.LeaderboardSnapshot:
		p.ApplyLeaderboard(m)
	case model.LapCompleted:
		p.ApplyLapCompleted(&m)
	case *model.LapCompleted:
		p.ApplyLapCompleted(m)
	case model.PitSummary:
		p.ApplyPitSummary(&m)
	case *model.PitSummary:
		p.ApplyPitSummary(m)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedMessage, msg)
	}
	return nil
}

func (p *Processor) ApplyTelemetry(msg *model.TelemetrySnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.carProcessor.ProcessTelemetry(msg)
}

func (p *Processor) ApplyLeaderboard(msg *model.LeaderboardSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.raceProcessor.ProcessLeaderboard(msg)
}

func (p *Processor) ApplyLapCompleted(msg *model.LapCompleted) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.raceProcessor.ProcessLapCompleted(msg)
}

func (p *Processor) ApplyPitSummary(msg *model.PitSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.carProcessor.ProcessPitSummary(msg)
}

// ResetLive clears telemetry and leaderboard. Lap records are kept.
func (p *Processor) ResetLive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.carProcessor.Reset()
	p.raceProcessor.Reset()
	p.splitTrend.Reset()
	p.l.Debug("live data cleared")
}

// Snapshot returns a copy of the current state together with the derived
// views for targetCar. The driver ahead split of targetCar is recorded for
// the trend computation of subsequent snapshots.
func (p *Processor) Snapshot(targetCar string) *model.Snapshot {
	p.mu.RLock()
	snap := &model.Snapshot{
		Timestamp:   p.now(),
		TargetCar:   targetCar,
		Telemetry:   p.carProcessor.CopyTelemetry(),
		Leaderboard: p.raceProcessor.CopyLeaderboard(),
		Laps:        p.raceProcessor.CopyCarLaps(),
	}
	p.mu.RUnlock()

	c := composer{snap: snap, reference: p.reference, splitTrend: p.splitTrend}
	c.compose()
	return snap
}
