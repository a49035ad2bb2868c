// Package decode converts raw feed blocks into typed messages.
package decode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

const positionElement = "Position"

// Decode parses the block of the given kind. It does no I/O and keeps no state.
func Decode(kind model.Kind, block []byte) (model.Message, error) {
	root, err := parseElement(block)
	if err != nil {
		return nil, &DecodeError{Kind: kind, Syntax: true, Err: err}
	}
	if root.name != string(kind) {
		return nil, &DecodeError{
			Kind: kind, Syntax: true,
			Err: fmt.Errorf("root element %q does not match kind", root.name),
		}
	}
	switch kind {
	case model.KindTelemetry:
		return decodeTelemetry(root)
	case model.KindLeaderboard:
		return decodeLeaderboard(root)
	case model.KindCompletedLap:
		return decodeCompletedLap(root)
	case model.KindPitSummary:
		return decodePitSummary(root)
	default:
		return nil, &DecodeError{Kind: kind, Err: ErrUnknownKind}
	}
}

func decodeTelemetry(root *element) (model.Message, error) {
	positions := root.childrenNamed(positionElement)
	ret := model.TelemetrySnapshot{Cars: make([]model.CarTelemetry, 0, len(positions))}
	for _, p := range positions {
		r := attrReader{kind: model.KindTelemetry, attrs: p.attrs}
		item := model.CarTelemetry{
			CarNum:     r.required("Car"),
			Rank:       r.integer("Rank"),
			Speed:      r.float("speed"),
			RPM:        r.integer("rpm"),
			Throttle:   r.integer("throttle"),
			Brake:      r.integer("brake"),
			BatteryPct: r.integer("Battery_Pct_Remaining"),
		}
		if r.err != nil {
			return nil, r.err
		}
		ret.Cars = append(ret.Cars, item)
	}
	return ret, nil
}

func decodeLeaderboard(root *element) (model.Message, error) {
	positions := root.childrenNamed(positionElement)
	ret := model.LeaderboardSnapshot{Entries: make([]model.LeaderboardEntry, 0, len(positions))}
	for _, p := range positions {
		r := attrReader{kind: model.KindLeaderboard, attrs: p.attrs}
		item := model.LeaderboardEntry{
			CarNum:     r.required("Car"),
			Rank:       r.integer("Rank"),
			LapsBehind: r.integer("Laps_Behind"),
			TimeBehind: r.float("Time_Behind"),
		}
		if r.err != nil {
			return nil, r.err
		}
		ret.Entries = append(ret.Entries, item)
	}
	return ret, nil
}

func decodeCompletedLap(root *element) (model.Message, error) {
	r := attrReader{kind: model.KindCompletedLap, attrs: root.attrs}
	ret := model.LapCompleted{
		CarNum:           r.required("Car"),
		FastestLap:       r.float("Fastest_Lap"),
		LapNumber:        r.integer("Lap_Number"),
		LapTime:          r.float("Lap_Time"),
		TotalTime:        r.float("Time"),
		LapsBehindLeader: r.integer("Laps_Behind_Leader"),
		TimeBehindLeader: r.float("Time_Behind_Leader"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return ret, nil
}

func decodePitSummary(root *element) (model.Message, error) {
	r := attrReader{kind: model.KindPitSummary, attrs: root.attrs}
	ret := model.PitSummary{
		CarNum:        r.required("Car"),
		PitStopNumber: r.integer("Pit_Stop_Number"),
		Attrs:         root.attrs,
	}
	if r.err != nil {
		return nil, r.err
	}
	return ret, nil
}

// attrReader converts attribute values. The first error is kept, later
// conversions return zero values.
type attrReader struct {
	kind  model.Kind
	attrs map[string]string
	err   error
}

func (r *attrReader) lookup(name string) (string, bool) {
	v, ok := r.attrs[name]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *attrReader) fail(name, value string, err error) {
	if r.err == nil {
		r.err = &DecodeError{Kind: r.kind, Field: name, Value: value, Err: err}
	}
}

func (r *attrReader) required(name string) string {
	v, ok := r.lookup(name)
	if !ok {
		r.fail(name, "", ErrMissingField)
	}
	return v
}

// integer returns 0 for absent attributes
func (r *attrReader) integer(name string) int {
	v, ok := r.lookup(name)
	if !ok {
		return 0
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.fail(name, v, ErrInvalidField)
		return 0
	}
	return int(i)
}

// float returns 0 for absent attributes
func (r *attrReader) float(name string) float64 {
	v, ok := r.lookup(name)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(name, v, ErrInvalidField)
		return 0
	}
	return f
}
