package logsink

import (
	"context"
	"fmt"

	"github.com/mpapenbr/livetiming-relay/log"
	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

// Sink writes a summary of each snapshot to the log.
type Sink struct {
	l *log.Logger
}

func New(l *log.Logger) *Sink {
	if l == nil {
		l = log.Default().Named("sink.log")
	}
	return &Sink{l: l}
}

func (s *Sink) Name() string { return "log" }

func (s *Sink) Publish(ctx context.Context, snap *model.Snapshot) error {
	fields := []log.Field{
		log.Time("timestamp", snap.Timestamp),
		log.String("targetCar", snap.TargetCar),
		log.Int("cars", len(snap.Telemetry)),
		log.Int("rows", len(snap.Rows)),
		log.Int("laps", len(snap.Laps)),
	}
	if snap.DriverInfo != nil {
		fields = append(fields,
			log.String("position", snapPosition(snap.DriverInfo)),
			log.String("aheadSplit", snap.DriverInfo.AheadSplit),
			log.String("trend", string(snap.DriverInfo.AheadSplitTrend)))
	}
	s.l.Info("snapshot", fields...)
	if len(snap.Rows) > 0 {
		s.l.Debug("leaderboard", log.Any("rows", snap.Rows))
	}
	return nil
}

func snapPosition(d *model.DriverInfo) string {
	return fmt.Sprintf("%s %d%s", d.DisplayName, d.Rank, d.Ordinal)
}
