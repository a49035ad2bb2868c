package race

import (
	"maps"
	"slices"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/livetiming-relay/log"
	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

type RaceProcessor struct {
	// rank order
	Leaderboard []model.LeaderboardEntry
	CarLaps     map[string]model.LapRecord // key carNum
	l           *log.Logger
}

type RaceProcessorOption func(rp *RaceProcessor)

// WithKnownCars creates placeholder lap records for the given cars.
func WithKnownCars(carNums []string) RaceProcessorOption {
	return func(rp *RaceProcessor) {
		for _, carNum := range carNums {
			if _, ok := rp.CarLaps[carNum]; !ok {
				rp.CarLaps[carNum] = model.NewPlaceholderLapRecord(carNum)
			}
		}
	}
}

func WithLogger(l *log.Logger) RaceProcessorOption {
	return func(rp *RaceProcessor) {
		rp.l = l
	}
}

func NewRaceProcessor(opts ...RaceProcessorOption) *RaceProcessor {
	ret := &RaceProcessor{
		Leaderboard: make([]model.LeaderboardEntry, 0),
		CarLaps:     make(map[string]model.LapRecord),
		l:           log.Default().Named("race"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// ProcessLeaderboard replaces the current leaderboard.
// The previous list is discarded, no merge takes place.
func (p *RaceProcessor) ProcessLeaderboard(msg *model.LeaderboardSnapshot) {
	entries := slices.Clone(msg.Entries)
	slices.SortStableFunc(entries, func(a, b model.LeaderboardEntry) int {
		return a.Rank - b.Rank
	})
	if !rankSequenceValid(entries) {
		p.l.Warn("leaderboard ranks are not contiguous",
			log.Int("entries", len(entries)))
	}
	p.Leaderboard = entries
}

// ProcessLapCompleted updates the lap record of the car.
// The delta is computed against the previous lap time of the same car.
func (p *RaceProcessor) ProcessLapCompleted(msg *model.LapCompleted) {
	carEntry, ok := p.CarLaps[msg.CarNum]
	delta := model.LapDelta{Sign: model.DeltaNeutral}
	if ok {
		delta = ComputeDelta(carEntry.LastLapTime, msg.LapTime)
	} else {
		p.l.Debug("car not found in lap records, adding", log.String("car", msg.CarNum))
	}
	p.CarLaps[msg.CarNum] = model.LapRecord{
		CarNum:           msg.CarNum,
		FastestLap:       null.From(msg.FastestLap),
		LastLapNumber:    null.From(msg.LapNumber),
		LastLapTime:      null.From(msg.LapTime),
		TotalTime:        null.From(msg.TotalTime),
		LapsBehindLeader: null.From(msg.LapsBehindLeader),
		TimeBehindLeader: null.From(msg.TimeBehindLeader),
		LastLapDelta:     delta,
	}
}

// ComputeDelta returns the signed difference current-previous.
// Unknown previous lap times result in a neutral delta.
func ComputeDelta(previous null.Val[float64], current float64) model.LapDelta {
	prev, ok := previous.Get()
	if !ok {
		return model.LapDelta{Sign: model.DeltaNeutral}
	}
	switch {
	case current < prev:
		return model.LapDelta{Value: current - prev, Sign: model.DeltaImproved}
	case current > prev:
		return model.LapDelta{Value: current - prev, Sign: model.DeltaWorsened}
	default:
		return model.LapDelta{Sign: model.DeltaNeutral}
	}
}

// Reset clears the leaderboard. Lap records are kept for the whole session.
func (p *RaceProcessor) Reset() {
	p.Leaderboard = make([]model.LeaderboardEntry, 0)
}

func (p *RaceProcessor) CopyLeaderboard() []model.LeaderboardEntry {
	return slices.Clone(p.Leaderboard)
}

func (p *RaceProcessor) CopyCarLaps() map[string]model.LapRecord {
	return maps.Clone(p.CarLaps)
}

// IndexOf returns the position of carNum in the leaderboard, -1 if absent.
func IndexOf(entries []model.LeaderboardEntry, carNum string) int {
	return slices.IndexFunc(entries, func(e model.LeaderboardEntry) bool {
		return e.CarNum == carNum
	})
}

func rankSequenceValid(entries []model.LeaderboardEntry) bool {
	for i := range entries {
		if entries[i].Rank != i+1 {
			return false
		}
	}
	return true
}
