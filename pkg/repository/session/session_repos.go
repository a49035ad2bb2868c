//nolint:whitespace // can't make both editor and linter happy
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/livetiming-relay/pkg/repository"
)

type Session struct {
	ID        uuid.UUID
	FeedAddr  string
	StartedAt time.Time
}

const selector = `select id, feed_addr, started_at from relay_session`

// Create stores a new session with a time ordered id.
func Create(ctx context.Context, conn repository.Querier, feedAddr string) (
	*Session, error,
) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	row := conn.QueryRow(ctx, `
	insert into relay_session (id, feed_addr) values ($1,$2)
	returning started_at
		`, id, feedAddr)
	ret := &Session{ID: id, FeedAddr: feedAddr}
	if err := row.Scan(&ret.StartedAt); err != nil {
		return nil, err
	}
	return ret, nil
}

func LoadByID(ctx context.Context, conn repository.Querier, id uuid.UUID) (
	*Session, error,
) {
	row := conn.QueryRow(ctx, fmt.Sprintf("%s where id=$1", selector), id)
	var item Session
	if err := row.Scan(&item.ID, &item.FeedAddr, &item.StartedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNoData
		}
		return nil, err
	}
	return &item, nil
}

// deletes a session including its snapshots and lap records
func DeleteByID(ctx context.Context, conn repository.Querier, id uuid.UUID) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from relay_session where id=$1", id)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}
