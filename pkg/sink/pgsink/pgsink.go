package pgsink

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/livetiming-relay/log"
	"github.com/mpapenbr/livetiming-relay/pkg/model"
	"github.com/mpapenbr/livetiming-relay/pkg/repository/lap"
	"github.com/mpapenbr/livetiming-relay/pkg/repository/session"
	"github.com/mpapenbr/livetiming-relay/pkg/repository/snapshot"
)

// Sink stores new laps and, optionally, the snapshots of a relay session.
type Sink struct {
	pool           *pgxpool.Pool
	session        *session.Session
	storeSnapshots bool
	storedLaps     map[string]int // key carNum, value last stored lap number
	l              *log.Logger
}

type Option func(s *Sink)

// WithSnapshots enables storing every published snapshot.
func WithSnapshots(enabled bool) Option {
	return func(s *Sink) {
		s.storeSnapshots = enabled
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Sink) {
		s.l = l
	}
}

// New creates a new relay session for feedAddr.
//
//nolint:whitespace // can't make both editor and linter happy
func New(
	ctx context.Context, pool *pgxpool.Pool, feedAddr string, opts ...Option,
) (*Sink, error) {
	ret := &Sink{
		pool:       pool,
		storedLaps: make(map[string]int),
		l:          log.Default().Named("sink.postgres"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	var err error
	if ret.session, err = session.Create(ctx, pool, feedAddr); err != nil {
		return nil, err
	}
	ret.l.Info("relay session created", log.String("session", ret.session.ID.String()))
	return ret, nil
}

func (s *Sink) Name() string { return "postgres" }

func (s *Sink) Session() *session.Session { return s.session }

// Publish is called from a single goroutine.
func (s *Sink) Publish(ctx context.Context, snap *model.Snapshot) error {
	pending := s.newLaps(snap)
	if len(pending) == 0 && !s.storeSnapshots {
		return nil
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for i := range pending {
			if _, err := lap.Upsert(ctx, tx, s.session.ID, &pending[i]); err != nil {
				return err
			}
		}
		if s.storeSnapshots {
			if _, err := snapshot.Create(ctx, tx, s.session.ID, snap); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i := range pending {
		s.storedLaps[pending[i].CarNum] = pending[i].LastLapNumber.GetOrZero()
	}
	if len(pending) > 0 {
		s.l.Debug("laps stored", log.Int("count", len(pending)))
	}
	return nil
}

// newLaps returns the lap records whose last lap was not stored yet.
func (s *Sink) newLaps(snap *model.Snapshot) []model.LapRecord {
	ret := make([]model.LapRecord, 0)
	for carNum, rec := range snap.Laps {
		lapNo, ok := rec.LastLapNumber.Get()
		if !ok {
			continue
		}
		if stored, found := s.storedLaps[carNum]; found && stored == lapNo {
			continue
		}
		ret = append(ret, rec)
	}
	return ret
}
