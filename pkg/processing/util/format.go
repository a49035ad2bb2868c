package util

import (
	"fmt"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
)

var (
	RPMThresholds   = []int{2000, 4000, 6000, 8000, 10000, 11000}
	PedalThresholds = []int{20, 40, 60, 80, 95}
)

// Ordinal returns the english ordinal suffix for n (st, nd, rd, th)
func Ordinal(n int) string {
	if n < 0 {
		n = -n
	}
	if v := n % 100; v >= 11 && v <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

func Round3(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(3)
}

func RoundWhole(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(0)
}

// Diff3 returns a-b rounded to 3 decimals.
func Diff3(a, b float64) string {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).StringFixed(3)
}

// TimeBehind formats the gap to the leader. Lapped cars get the number of
// laps appended.
func TimeBehind(e model.LeaderboardEntry) string {
	switch {
	case e.LapsBehind == 0:
		return Round3(e.TimeBehind)
	case e.LapsBehind == 1:
		return fmt.Sprintf("%s 1 lap", Round3(e.TimeBehind))
	default:
		return fmt.Sprintf("%s %d laps", Round3(e.TimeBehind), e.LapsBehind)
	}
}

// IntervalSplit formats the gap of entries[idx] to the car ahead.
// entries must be in rank order.
func IntervalSplit(entries []model.LeaderboardEntry, idx int) string {
	if idx < 0 || idx >= len(entries) {
		return model.Unavailable
	}
	e := entries[idx]
	if e.LapsBehind > 0 {
		return TimeBehind(e)
	}
	if idx == 0 {
		return Round3(e.TimeBehind)
	}
	return "+" + Diff3(e.TimeBehind, entries[idx-1].TimeBehind)
}

// FormatDelta returns the signed lap delta, empty for neutral deltas.
func FormatDelta(d model.LapDelta) string {
	switch d.Sign {
	case model.DeltaImproved:
		return Round3(d.Value)
	case model.DeltaWorsened:
		return "+" + Round3(d.Value)
	default:
		return ""
	}
}

// Bands returns for each threshold if value reached it.
func Bands(value int, thresholds []int) []bool {
	ret := make([]bool, len(thresholds))
	for i, t := range thresholds {
		ret[i] = value >= t
	}
	return ret
}

// BandImages maps reached bands to on and the others to off.
func BandImages(bands []bool, on, off string) []string {
	return lo.Map(bands, func(reached bool, _ int) string {
		return lo.Ternary(reached, on, off)
	})
}

func OrUnavailable(s string) string {
	if s == "" {
		return model.Unavailable
	}
	return s
}

func FormatNullFloat(v null.Val[float64]) string {
	if f, ok := v.Get(); ok {
		return Round3(f)
	}
	return model.Unavailable
}

func FormatNullInt(v null.Val[int]) string {
	if i, ok := v.Get(); ok {
		return fmt.Sprintf("%d", i)
	}
	return model.Unavailable
}
