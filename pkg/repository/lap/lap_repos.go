//nolint:whitespace // can't make both editor and linter happy
package lap

import (
	"context"
	"fmt"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
	"github.com/mpapenbr/livetiming-relay/pkg/repository"
)

// Upsert stores the last lap of rec. Records without a lap number are ignored.
// Returns the number of rows affected.
func Upsert(
	ctx context.Context,
	conn repository.Querier,
	sessionID uuid.UUID,
	rec *model.LapRecord,
) (int, error) {
	lapNo, ok := rec.LastLapNumber.Get()
	if !ok {
		return 0, nil
	}
	cmdTag, err := conn.Exec(ctx, `
	insert into lap_record (
		session_id, car_num, lap_number, lap_time, fastest_lap, total_time,
		laps_behind_leader, time_behind_leader, delta, delta_sign
	) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	on conflict (session_id, car_num, lap_number) do update set
		lap_time=excluded.lap_time,
		fastest_lap=excluded.fastest_lap,
		total_time=excluded.total_time,
		laps_behind_leader=excluded.laps_behind_leader,
		time_behind_leader=excluded.time_behind_leader,
		delta=excluded.delta,
		delta_sign=excluded.delta_sign
		`,
		sessionID, rec.CarNum, lapNo,
		rec.LastLapTime.GetOrZero(),
		rec.FastestLap.GetOrZero(),
		rec.TotalTime.GetOrZero(),
		rec.LapsBehindLeader.GetOrZero(),
		rec.TimeBehindLeader.GetOrZero(),
		rec.LastLapDelta.Value,
		int(rec.LastLapDelta.Sign),
	)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

const selector = `select car_num, lap_number, lap_time, fastest_lap, total_time,
	laps_behind_leader, time_behind_leader, delta, delta_sign
	from lap_record`

// LoadByCar returns all laps of a car ordered by lap number.
func LoadByCar(
	ctx context.Context,
	conn repository.Querier,
	sessionID uuid.UUID,
	carNum string,
) ([]*model.LapRecord, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where session_id=$1 and car_num=$2 order by lap_number asc",
			selector),
		sessionID, carNum)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// LoadLatest returns the last stored lap per car of the session.
func LoadLatest(
	ctx context.Context,
	conn repository.Querier,
	sessionID uuid.UUID,
) ([]*model.LapRecord, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf(`select distinct on (car_num) * from (%s where session_id=$1) l
		order by car_num, lap_number desc`, selector),
		sessionID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]*model.LapRecord, error) {
	defer rows.Close()
	ret := make([]*model.LapRecord, 0)
	for rows.Next() {
		var (
			item             model.LapRecord
			lapNo, lapsBehind int
			sign             int16
			lapTime, fastest float64
			total, behind    float64
		)
		if err := rows.Scan(&item.CarNum, &lapNo, &lapTime, &fastest, &total,
			&lapsBehind, &behind, &item.LastLapDelta.Value, &sign); err != nil {
			return nil, err
		}
		item.LastLapNumber = null.From(lapNo)
		item.LastLapTime = null.From(lapTime)
		item.FastestLap = null.From(fastest)
		item.TotalTime = null.From(total)
		item.LapsBehindLeader = null.From(lapsBehind)
		item.TimeBehindLeader = null.From(behind)
		item.LastLapDelta.Sign = model.DeltaSign(sign)
		ret = append(ret, &item)
	}
	return ret, rows.Err()
}
