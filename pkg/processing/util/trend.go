package util

import (
	"sync"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

const trendHistory = 3

// SplitTrend compares a newly published split with the last published
// values of the same relation (e.g. target car vs. car ahead).
type SplitTrend struct {
	mu       sync.Mutex
	relation string
	history  []float64
}

func NewSplitTrend() *SplitTrend {
	return &SplitTrend{history: make([]float64, 0, trendHistory)}
}

// Observe records split for relation and returns the trend against the
// previous values. A changed relation starts a new history.
func (s *SplitTrend) Observe(relation string, split float64) model.Trend {
	s.mu.Lock()
	defer s.mu.Unlock()
	if relation != s.relation {
		s.relation = relation
		s.history = s.history[:0]
	}
	trend := compareSplit(split, s.history)
	if len(s.history) == trendHistory {
		s.history = append(s.history[:0], s.history[1:]...)
	}
	s.history = append(s.history, split)
	return trend
}

func (s *SplitTrend) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relation = ""
	s.history = s.history[:0]
}

func compareSplit(split float64, prior []float64) model.Trend {
	for _, p := range prior {
		if split < p {
			return model.TrendImproved
		}
	}
	for _, p := range prior {
		if split > p {
			return model.TrendWorsened
		}
	}
	return model.TrendUnchanged
}
