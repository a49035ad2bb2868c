package car

import (
	"maps"

	"github.com/mpapenbr/livetiming-relay/log"
	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

// CarProcessor keeps the latest telemetry per car and counts pit stops.
type CarProcessor struct {
	Telemetry map[string]model.CarTelemetry // key carNum
	PitStops  map[string]int                // key carNum
	l         *log.Logger
}

type CarProcessorOption func(cp *CarProcessor)

func WithLogger(l *log.Logger) CarProcessorOption {
	return func(cp *CarProcessor) {
		cp.l = l
	}
}

func NewCarProcessor(opts ...CarProcessorOption) *CarProcessor {
	cp := &CarProcessor{
		Telemetry: make(map[string]model.CarTelemetry),
		PitStops:  make(map[string]int),
		l:         log.Default().Named("car"),
	}
	for _, opt := range opts {
		opt(cp)
	}
	return cp
}

// ProcessTelemetry replaces the entries of all cars in the snapshot.
// Cars not mentioned keep their previous values.
func (p *CarProcessor) ProcessTelemetry(msg *model.TelemetrySnapshot) {
	for i := range msg.Cars {
		entry := msg.Cars[i]
		entry.PitStops = p.PitStops[entry.CarNum]
		p.Telemetry[entry.CarNum] = entry
	}
}

// ProcessPitSummary increments the pit stop counter of the car.
// If the message carries the stop number it is taken as is.
func (p *CarProcessor) ProcessPitSummary(msg *model.PitSummary) {
	count := p.PitStops[msg.CarNum] + 1
	if msg.PitStopNumber > 0 {
		count = max(msg.PitStopNumber, p.PitStops[msg.CarNum])
	}
	p.PitStops[msg.CarNum] = count
	if entry, ok := p.Telemetry[msg.CarNum]; ok {
		entry.PitStops = count
		p.Telemetry[msg.CarNum] = entry
	}
	p.l.Info("pit stop",
		log.String("car", msg.CarNum),
		log.Int("stops", count),
		log.Any("attrs", msg.Attrs))
}

// Reset removes all telemetry. Pit stop counts are kept for the session.
func (p *CarProcessor) Reset() {
	p.Telemetry = make(map[string]model.CarTelemetry)
}

func (p *CarProcessor) CopyTelemetry() map[string]model.CarTelemetry {
	return maps.Clone(p.Telemetry)
}
