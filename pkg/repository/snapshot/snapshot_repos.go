//nolint:whitespace // can't make both editor and linter happy
package snapshot

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
	"github.com/mpapenbr/livetiming-relay/pkg/repository"
)

// Create stores snap as json document, returns the id of the new entry.
func Create(
	ctx context.Context,
	conn repository.Querier,
	sessionID uuid.UUID,
	snap *model.Snapshot,
) (int64, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return 0, err
	}
	row := conn.QueryRow(ctx, `
	insert into snapshot (
		session_id, record_stamp, target_car, data
	) values ($1,$2,$3,$4)
	returning id
		`,
		sessionID, snap.Timestamp, snap.TargetCar, data,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// LoadLatest returns the most recent snapshot of the session.
func LoadLatest(
	ctx context.Context,
	conn repository.Querier,
	sessionID uuid.UUID,
) (*model.Snapshot, error) {
	row := conn.QueryRow(ctx, `
	select data from snapshot where session_id=$1
	order by record_stamp desc, id desc limit 1
		`, sessionID)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNoData
		}
		return nil, err
	}
	var ret model.Snapshot
	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

func CountBySession(
	ctx context.Context,
	conn repository.Querier,
	sessionID uuid.UUID,
) (int, error) {
	row := conn.QueryRow(ctx,
		"select count(*) from snapshot where session_id=$1", sessionID)
	var count int
	err := row.Scan(&count)
	return count, err
}
