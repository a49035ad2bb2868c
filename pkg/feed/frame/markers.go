package frame

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

var ErrUnknownKind = errors.New("frame: unknown message kind")

// selfClosingEnd terminates single event messages like <Completed_Lap .../>
const selfClosingEnd = "/>"

// Marker holds the literal start and end sequences of one message kind.
type Marker struct {
	Kind  model.Kind
	Start []byte
	End   []byte
}

func MarkerFor(kind model.Kind) (Marker, error) {
	switch kind {
	case model.KindTelemetry, model.KindPitSummary, model.KindLeaderboard:
		return Marker{
			Kind:  kind,
			Start: []byte("<" + string(kind)),
			End:   []byte("</" + string(kind) + ">"),
		}, nil
	case model.KindCompletedLap:
		return Marker{
			Kind:  kind,
			Start: []byte("<" + string(kind)),
			End:   []byte(selfClosingEnd),
		}, nil
	default:
		return Marker{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// ParseKindOrder converts a list of kind names into kinds.
// Every known kind must appear exactly once.
func ParseKindOrder(names []string) ([]model.Kind, error) {
	ret := make([]model.Kind, 0, len(names))
	seen := make(map[model.Kind]bool)
	for _, n := range names {
		k := model.Kind(strings.TrimSpace(n))
		if _, err := MarkerFor(k); err != nil {
			return nil, err
		}
		if seen[k] {
			return nil, fmt.Errorf("frame: duplicate kind %q in order", k)
		}
		seen[k] = true
		ret = append(ret, k)
	}
	if len(ret) != len(model.DefaultKindOrder) {
		return nil, fmt.Errorf("frame: kind order must contain all %d kinds, got %d",
			len(model.DefaultKindOrder), len(ret))
	}
	return ret, nil
}
