package frame

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

// ErrBufferOverflow is returned by Feed if the bytes waiting for a
// matching end marker exceed the configured limit.
var ErrBufferOverflow = errors.New("frame: pending bytes exceed limit")

const DefaultMaxPending = 4 * 1024 * 1024

// Policy selects which candidate start marker is handled in an extraction pass.
type Policy int

const (
	// PolicyPriority checks only the first kind (in kind order) whose start
	// marker is present in the buffer. Bytes before that block are consumed
	// together with the block and reported via Discarded.
	PolicyPriority Policy = iota
	// PolicyArrival handles the start marker found first in the buffer.
	// Ties cannot occur since markers start with different names.
	PolicyArrival
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "priority", "":
		return PolicyPriority, nil
	case "arrival":
		return PolicyArrival, nil
	default:
		return PolicyPriority, fmt.Errorf("frame: unknown scan policy %q", s)
	}
}

// Block is one complete raw message.
type Block struct {
	Kind model.Kind
	Data []byte
}

// Discard describes bytes consumed in front of an extracted block that
// contained start markers of other kinds.
type Discard struct {
	Bytes int
	Kinds []model.Kind
	// Kind of the block that was extracted after the discarded bytes
	Before model.Kind
}

type stepResult int

const (
	stepIdle       stepResult = iota // no start marker in buffer
	stepIncomplete                   // start marker found, end marker missing
	stepComplete                     // block extracted
)

// Extractor carves complete messages out of an unframed byte stream.
// An Extractor is not safe for concurrent use.
type Extractor struct {
	markers    []Marker
	policy     Policy
	maxPending int
	buf        []byte
	ready      []Block
	discarded  []Discard
}

type Option func(e *Extractor) error

func WithKindOrder(kinds []model.Kind) Option {
	return func(e *Extractor) error {
		markers := make([]Marker, 0, len(kinds))
		for _, k := range kinds {
			m, err := MarkerFor(k)
			if err != nil {
				return err
			}
			markers = append(markers, m)
		}
		e.markers = markers
		return nil
	}
}

func WithPolicy(p Policy) Option {
	return func(e *Extractor) error {
		e.policy = p
		return nil
	}
}

// WithMaxPending sets the limit of buffered bytes. Values <= 0 disable the limit.
func WithMaxPending(n int) Option {
	return func(e *Extractor) error {
		e.maxPending = n
		return nil
	}
}

func NewExtractor(opts ...Option) (*Extractor, error) {
	e := &Extractor{
		policy:     PolicyPriority,
		maxPending: DefaultMaxPending,
	}
	if err := WithKindOrder(model.DefaultKindOrder)(e); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Feed appends chunk to the buffer and extracts all complete blocks.
// Extracted blocks are collected until Drain is called.
// ErrBufferOverflow is returned when the remaining buffer exceeds the limit;
// blocks extracted before are still available via Drain.
func (e *Extractor) Feed(chunk []byte) error {
	e.buf = append(e.buf, chunk...)
	for {
		res, block := e.step()
		if res != stepComplete {
			break
		}
		e.ready = append(e.ready, block)
	}
	if e.maxPending > 0 && len(e.buf) > e.maxPending {
		return fmt.Errorf("%w: %d > %d", ErrBufferOverflow, len(e.buf), e.maxPending)
	}
	return nil
}

// Drain returns the blocks extracted so far in arrival order.
func (e *Extractor) Drain() []Block {
	ret := e.ready
	e.ready = nil
	return ret
}

// Discarded returns the discards recorded since the last call.
// Bytes without any known start marker are not reported.
func (e *Extractor) Discarded() []Discard {
	ret := e.discarded
	e.discarded = nil
	return ret
}

// Pending returns the number of bytes waiting for more input.
func (e *Extractor) Pending() int {
	return len(e.buf)
}

// Reset discards all buffered data, used when the connection is closed.
func (e *Extractor) Reset() {
	e.buf = e.buf[:0]
	e.ready = nil
	e.discarded = nil
}

func (e *Extractor) step() (stepResult, Block) {
	m, startIdx := e.candidate()
	if startIdx < 0 {
		return stepIdle, Block{}
	}
	endRel := bytes.Index(e.buf[startIdx+len(m.Start):], m.End)
	if endRel < 0 {
		return stepIncomplete, Block{}
	}
	endIdx := startIdx + len(m.Start) + endRel + len(m.End)
	block := Block{Kind: m.Kind, Data: bytes.Clone(e.buf[startIdx:endIdx])}
	if startIdx > 0 {
		e.recordDiscard(e.buf[:startIdx], m.Kind)
	}
	n := copy(e.buf, e.buf[endIdx:])
	e.buf = e.buf[:n]
	return stepComplete, block
}

func (e *Extractor) recordDiscard(prefix []byte, before model.Kind) {
	var found []model.Kind
	for _, m := range e.markers {
		if bytes.Contains(prefix, m.Start) {
			found = append(found, m.Kind)
		}
	}
	if len(found) == 0 {
		return
	}
	e.discarded = append(e.discarded, Discard{
		Bytes:  len(prefix),
		Kinds:  found,
		Before: before,
	})
}

// candidate returns the marker to handle in this pass and the position
// of its start marker (-1 if there is none).
func (e *Extractor) candidate() (Marker, int) {
	bestIdx := -1
	var best Marker
	for _, m := range e.markers {
		idx := bytes.Index(e.buf, m.Start)
		if idx < 0 {
			continue
		}
		if e.policy == PolicyPriority {
			return m, idx
		}
		if bestIdx < 0 || idx < bestIdx {
			bestIdx = idx
			best = m
		}
	}
	return best, bestIdx
}
