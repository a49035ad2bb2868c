package util

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

func TestSplitTrend_Observe(t *testing.T) {
	s := NewSplitTrend()
	assert.Equal(t, model.TrendUnchanged, s.Observe("9/12", 1.5), "no history")
	assert.Equal(t, model.TrendImproved, s.Observe("9/12", 1.2))
	assert.Equal(t, model.TrendWorsened, s.Observe("9/12", 1.6), "larger than 1.2 and 1.5")
	assert.Equal(t, model.TrendImproved, s.Observe("9/12", 1.5), "smaller than 1.6")
	// only the last three splits are kept
	s.Observe("9/12", 1.7)
	s.Observe("9/12", 1.7)
	s.Observe("9/12", 1.7)
	assert.Equal(t, model.TrendUnchanged, s.Observe("9/12", 1.7))
}

func TestSplitTrend_Unchanged(t *testing.T) {
	s := NewSplitTrend()
	s.Observe("9/12", 1.0)
	assert.Equal(t, model.TrendUnchanged, s.Observe("9/12", 1.0))
}

func TestSplitTrend_RelationChange(t *testing.T) {
	s := NewSplitTrend()
	s.Observe("9/12", 1.0)
	s.Observe("9/12", 0.8)
	assert.Equal(t, model.TrendUnchanged, s.Observe("9/3", 5.0), "new car ahead starts a new history")
	assert.Equal(t, model.TrendImproved, s.Observe("9/3", 4.0))
	s.Reset()
	assert.Equal(t, model.TrendUnchanged, s.Observe("9/3", 9.0))
}
