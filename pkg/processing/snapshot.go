package processing

import (
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
	"github.com/mpapenbr/livetiming-relay/pkg/processing/race"
	"github.com/mpapenbr/livetiming-relay/pkg/processing/util"
)

const (
	highlightImage = "Highlight"
	rpmImage       = "RPM"
	throttleImage  = "Throttle"
	brakeImage     = "Brake"
	offImage       = "Off"
)

// composer computes the derived views of a snapshot.
// It only reads from snap, reference data is never modified.
type composer struct {
	snap       *model.Snapshot
	reference  *model.ReferenceData
	splitTrend *util.SplitTrend
}

func (c *composer) compose() {
	c.snap.Rows = c.rows()
	if c.snap.TargetCar == "" {
		return
	}
	c.snap.Target = c.targetTelemetry()
	c.snap.DriverInfo = c.driverInfo()
}

func (c *composer) rows() []model.LeaderboardRow {
	entries := c.snap.Leaderboard
	ret := make([]model.LeaderboardRow, 0, len(entries))
	for i, e := range entries {
		ref, _ := c.reference.Driver(e.CarNum)
		row := model.LeaderboardRow{
			Rank:          e.Rank,
			CarNum:        e.CarNum,
			CarLogo:       ref.CarLogo,
			Team:          ref.Team,
			TeamLogo:      ref.TeamLogo,
			FirstName:     ref.FirstName,
			LastName:      ref.LastName,
			DisplayName:   ref.DisplayName,
			LeaderSplit:   util.TimeBehind(e),
			IntervalSplit: util.IntervalSplit(entries, i),
			Speed:         model.Unavailable,
			LapsCompleted: model.Unavailable,
			LastLapTime:   model.Unavailable,
		}
		if t, ok := c.snap.Telemetry[e.CarNum]; ok {
			row.Speed = util.RoundWhole(t.Speed)
		}
		if lap, ok := c.snap.Laps[e.CarNum]; ok {
			row.LapsCompleted = util.FormatNullInt(lap.LastLapNumber)
			row.LastLapTime = util.FormatNullFloat(lap.LastLapTime)
		}
		if e.CarNum == c.snap.TargetCar && c.reference != nil {
			row.Highlight = c.reference.LeaderboardImages[highlightImage]
		}
		ret = append(ret, row)
	}
	return ret
}

func (c *composer) targetTelemetry() *model.TargetTelemetry {
	t, ok := c.snap.Telemetry[c.snap.TargetCar]
	if !ok {
		return nil
	}
	ref, found := c.reference.Driver(t.CarNum)
	ret := &model.TargetTelemetry{
		CarTelemetry: t,
		Ordinal:      util.Ordinal(t.Rank),
		DisplayName:  model.Unavailable,
		Headshot:     model.Unavailable,
		RPMBands:     util.Bands(t.RPM, util.RPMThresholds),
		Throttle:     util.Bands(t.Throttle, util.PedalThresholds),
		Brake:        util.Bands(t.Brake, util.PedalThresholds),
	}
	if found {
		ret.DisplayName = ref.DisplayName
		ret.Headshot = ref.Headshot
	}
	off := c.indicatorImage(offImage)
	ret.RPMImages = util.BandImages(ret.RPMBands, c.indicatorImage(rpmImage), off)
	ret.ThrottleImages = util.BandImages(ret.Throttle, c.indicatorImage(throttleImage), off)
	ret.BrakeImages = util.BandImages(ret.Brake, c.indicatorImage(brakeImage), off)
	return ret
}

//nolint:funlen // many fields
func (c *composer) driverInfo() *model.DriverInfo {
	entries := c.snap.Leaderboard
	idx := race.IndexOf(entries, c.snap.TargetCar)
	if idx < 0 {
		return nil
	}
	e := entries[idx]
	ret := &model.DriverInfo{
		CarNum:           e.CarNum,
		Rank:             e.Rank,
		Ordinal:          util.Ordinal(e.Rank),
		FirstName:        model.Unavailable,
		LastName:         model.Unavailable,
		DisplayName:      model.Unavailable,
		Headshot:         model.Unavailable,
		TeamLogo:         model.Unavailable,
		ManufacturerLogo: model.Unavailable,
		LapNumber:        model.Unavailable,
		LastLapTime:      model.Unavailable,
		Speed:            model.Unavailable,
		AheadLastName:    model.Unavailable,
		BehindLastName:   model.Unavailable,
		AheadSplit:       model.Unavailable,
		AheadSplitTrend:  model.TrendUnchanged,
	}
	if ref, ok := c.reference.Driver(e.CarNum); ok {
		ret.FirstName = ref.FirstName
		ret.LastName = ref.LastName
		ret.DisplayName = ref.DisplayName
		ret.Headshot = ref.Headshot
		ret.TeamLogo = ref.TeamLogo
		ret.ManufacturerLogo = ref.ManufacturerLogo
	}
	if t, ok := c.snap.Telemetry[e.CarNum]; ok {
		ret.Speed = util.RoundWhole(t.Speed)
	}
	if lap, ok := c.snap.Laps[e.CarNum]; ok {
		ret.LapNumber = util.FormatNullInt(lap.LastLapNumber)
		ret.LastLapTime = util.FormatNullFloat(lap.LastLapTime)
		ret.LastLapDelta = util.FormatDelta(lap.LastLapDelta)
		ret.LastLapDeltaSign = lap.LastLapDelta.Sign
	}
	if idx+1 < len(entries) {
		ret.BehindLastName = c.lastName(entries[idx+1].CarNum)
	}
	if idx > 0 {
		ahead := entries[idx-1]
		ret.AheadLastName = c.lastName(ahead.CarNum)
		ret.AheadSplit = util.IntervalSplit(entries, idx)
		// time gaps are only comparable while on the same lap
		if e.LapsBehind == 0 {
			split := decimal.NewFromFloat(e.TimeBehind).
				Sub(decimal.NewFromFloat(ahead.TimeBehind)).
				Round(3)
			ret.AheadSplitTrend = c.splitTrend.Observe(
				e.CarNum+"/"+ahead.CarNum, split.InexactFloat64())
		}
	}
	return ret
}

func (c *composer) indicatorImage(key string) string {
	if c.reference == nil {
		return model.Unavailable
	}
	return util.OrUnavailable(c.reference.IndicatorImages[key])
}

func (c *composer) lastName(carNum string) string {
	if ref, ok := c.reference.Driver(carNum); ok {
		return util.OrUnavailable(ref.LastName)
	}
	return model.Unavailable
}
