// Package feeddata provides a recorded timing feed for tests.
//
// The capture contains three cars (12, 9, 27). After replay the leaderboard
// is 12, 9 (+1.234) and 27 (one lap down) and each car has a completed lap.
package feeddata

import (
	_ "embed"
)

//go:embed race.feed
var race []byte

// Race returns a copy of the recorded feed.
func Race() []byte {
	ret := make([]byte, len(race))
	copy(ret, race)
	return ret
}
