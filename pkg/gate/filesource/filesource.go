package filesource

import (
	"context"
	"errors"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/mpapenbr/livetiming-relay/log"
	"github.com/mpapenbr/livetiming-relay/pkg/gate"
)

const (
	keyOnline    = "online"
	keyTargetCar = "targetCar"
)

var ErrMissingOnline = errors.New("control file does not define online")

// Source reads the gate control from a yaml file. Changes to the file are
// picked up without restart.
type Source struct {
	mu      sync.RWMutex
	v       *viper.Viper
	control gate.Control
	err     error
	l       *log.Logger
}

type Option func(s *Source)

func WithLogger(l *log.Logger) Option {
	return func(s *Source) {
		s.l = l
	}
}

// New reads path and starts watching it for changes.
func New(path string, opts ...Option) (*Source, error) {
	ret := &Source{
		v: viper.New(),
		l: log.Default().Named("gate.file"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.v.SetConfigFile(path)
	if err := ret.v.ReadInConfig(); err != nil {
		return nil, err
	}
	ret.update()
	if ret.err != nil {
		return nil, ret.err
	}
	ret.v.OnConfigChange(func(e fsnotify.Event) {
		ret.l.Info("control file changed",
			log.String("file", e.Name), log.String("op", e.Op.String()))
		ret.update()
	})
	ret.v.WatchConfig()
	return ret, nil
}

// update is called from the watcher goroutine after viper re-read the file.
func (s *Source) update() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.v.IsSet(keyOnline) {
		s.err = ErrMissingOnline
		return
	}
	s.err = nil
	s.control = gate.Control{
		Online:    s.v.GetBool(keyOnline),
		TargetCar: s.v.GetString(keyTargetCar),
	}
}

func (s *Source) Poll(ctx context.Context) (gate.Control, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.control, s.err
}
