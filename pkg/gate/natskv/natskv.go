package natskv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mpapenbr/livetiming-relay/log"
	"github.com/mpapenbr/livetiming-relay/pkg/gate"
)

const (
	DefaultBucket = "ltr_control"
	DefaultPrefix = "relay"
)

// Source reads the gate control from a NATS key value bucket.
// Keys: <prefix>.online ("true"/"false"), <prefix>.target and
// <prefix>.heartbeat which is written while online.
type Source struct {
	kv     jetstream.KeyValue
	bucket string
	prefix string
	l      *log.Logger
}

type Option func(s *Source)

func WithBucket(bucket string) Option {
	return func(s *Source) {
		if bucket != "" {
			s.bucket = bucket
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(s *Source) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Source) {
		s.l = l
	}
}

// New creates the bucket if it does not exist.
func New(ctx context.Context, nc *nats.Conn, opts ...Option) (*Source, error) {
	ret := &Source{
		bucket: DefaultBucket,
		prefix: DefaultPrefix,
		l:      log.Default().Named("gate.nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, err
	}
	ret.kv, err = js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      ret.bucket,
		Description: "livetiming relay control",
	})
	if err != nil {
		return nil, err
	}
	ret.l.Debug("using control bucket",
		log.String("bucket", ret.bucket), log.String("prefix", ret.prefix))
	return ret, nil
}

func (s *Source) key(name string) string {
	return fmt.Sprintf("%s.%s", s.prefix, name)
}

// Poll returns offline with no error if the online key is missing.
func (s *Source) Poll(ctx context.Context) (gate.Control, error) {
	online, err := s.get(ctx, "online")
	if err != nil {
		return gate.Control{}, err
	}
	target, err := s.get(ctx, "target")
	if err != nil {
		return gate.Control{}, err
	}
	ret := gate.Control{TargetCar: target}
	if online != "" {
		if ret.Online, err = strconv.ParseBool(online); err != nil {
			return gate.Control{}, fmt.Errorf("invalid online value %q: %w", online, err)
		}
	}
	return ret, nil
}

func (s *Source) get(ctx context.Context, name string) (string, error) {
	kve, err := s.kv.Get(ctx, s.key(name))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(kve.Value()), nil
}

func (s *Source) Heartbeat(ctx context.Context, ts time.Time) error {
	_, err := s.kv.PutString(ctx, s.key("heartbeat"), ts.UTC().Format(time.RFC3339))
	return err
}

// SetControl stores c. Used by tools and tests to drive the gate.
func (s *Source) SetControl(ctx context.Context, c gate.Control) error {
	if _, err := s.kv.PutString(ctx, s.key("online"), strconv.FormatBool(c.Online)); err != nil {
		return err
	}
	_, err := s.kv.PutString(ctx, s.key("target"), c.TargetCar)
	return err
}
