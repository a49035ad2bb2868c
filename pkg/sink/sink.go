package sink

import (
	"context"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

// Sink receives published snapshots. Implementations must not modify the
// snapshot, it is shared between all sinks.
type Sink interface {
	Name() string
	Publish(ctx context.Context, snap *model.Snapshot) error
}

// Closer is implemented by sinks holding resources.
type Closer interface {
	Close() error
}
