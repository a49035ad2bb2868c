package natssink

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/livetiming-relay/log"
	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

const DefaultSubject = "ltr.snapshot"

// Sink publishes snapshots as json to a NATS subject.
// Each message carries a unique Nats-Msg-Id header for deduplication.
type Sink struct {
	conn    *nats.Conn
	subject string
	l       *log.Logger
}

type Option func(s *Sink)

func WithSubject(subject string) Option {
	return func(s *Sink) {
		if subject != "" {
			s.subject = subject
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Sink) {
		s.l = l
	}
}

func New(conn *nats.Conn, opts ...Option) *Sink {
	ret := &Sink{
		conn:    conn,
		subject: DefaultSubject,
		l:       log.Default().Named("sink.nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *Sink) Name() string { return "nats" }

func (s *Sink) Publish(ctx context.Context, snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(s.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	if snap.TargetCar != "" {
		msg.Header.Set("Ltr-Target-Car", snap.TargetCar)
	}
	if err := s.conn.PublishMsg(msg); err != nil {
		return err
	}
	s.l.Debug("snapshot published",
		log.String("subject", s.subject), log.Int("bytes", len(data)))
	return nil
}

// Close flushes pending messages. The connection itself is owned by the caller.
func (s *Sink) Close() error {
	return s.conn.Flush()
}
