package basedata

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
	"github.com/mpapenbr/livetiming-relay/pkg/repository/session"
)

func TestTime() time.Time {
	t, _ := time.Parse(time.RFC3339, "2024-04-28T11:10:12Z")
	return t
}

func SampleDrivers() []model.DriverReference {
	return []model.DriverReference{
		{
			CarNum: "9", Team: "Chip Ganassi Racing", FirstName: "Scott",
			LastName: "Dixon", DisplayName: "S. Dixon",
		},
		{
			CarNum: "12", Team: "Team Penske", FirstName: "Will",
			LastName: "Power", DisplayName: "W. Power",
		},
	}
}

func SampleLeaderboard() []model.LeaderboardEntry {
	return []model.LeaderboardEntry{
		{CarNum: "12", Rank: 1},
		{CarNum: "9", Rank: 2, TimeBehind: 1.234},
	}
}

func SampleSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Timestamp:   TestTime(),
		TargetCar:   "9",
		Telemetry:   map[string]model.CarTelemetry{"9": {CarNum: "9", Rank: 2, Speed: 220}},
		Leaderboard: SampleLeaderboard(),
		Laps:        map[string]model.LapRecord{"9": model.NewPlaceholderLapRecord("9")},
	}
}

// CreateSampleSession stores a session and returns it.
func CreateSampleSession(pool *pgxpool.Pool) *session.Session {
	var ret *session.Session
	err := pgx.BeginFunc(context.Background(), pool, func(tx pgx.Tx) error {
		var err error
		ret, err = session.Create(context.Background(), tx, "localhost:50000")
		return err
	})
	if err != nil {
		log.Fatalf("CreateSampleSession: %v\n", err)
	}
	return ret
}
