//nolint:whitespace // can't make both editor and linter happy
package driver

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/livetiming-relay/pkg/model"
	"github.com/mpapenbr/livetiming-relay/pkg/repository"
)

const selector = `select car_num, car_logo, team, team_logo, first_name, last_name,
	display_name, headshot, manufacturer_logo
	from driver_reference`

func Upsert(ctx context.Context, conn repository.Querier, d *model.DriverReference) error {
	_, err := conn.Exec(ctx, `
	insert into driver_reference (
		car_num, car_logo, team, team_logo, first_name, last_name,
		display_name, headshot, manufacturer_logo
	) values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	on conflict (car_num) do update set
		car_logo=excluded.car_logo,
		team=excluded.team,
		team_logo=excluded.team_logo,
		first_name=excluded.first_name,
		last_name=excluded.last_name,
		display_name=excluded.display_name,
		headshot=excluded.headshot,
		manufacturer_logo=excluded.manufacturer_logo
		`,
		d.CarNum, d.CarLogo, d.Team, d.TeamLogo, d.FirstName, d.LastName,
		d.DisplayName, d.Headshot, d.ManufacturerLogo)
	return err
}

func LoadAll(ctx context.Context, conn repository.Querier) (
	[]model.DriverReference, error,
) {
	rows, err := conn.Query(ctx, fmt.Sprintf("%s order by car_num asc", selector))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]model.DriverReference, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, rows.Err()
}

// deletes an entry from the database, returns number of rows deleted.
func DeleteByCarNum(ctx context.Context, conn repository.Querier, carNum string) (
	int, error,
) {
	cmdTag, err := conn.Exec(ctx, "delete from driver_reference where car_num=$1", carNum)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func scan(row pgx.Row) (model.DriverReference, error) {
	var d model.DriverReference
	err := row.Scan(&d.CarNum, &d.CarLogo, &d.Team, &d.TeamLogo, &d.FirstName,
		&d.LastName, &d.DisplayName, &d.Headshot, &d.ManufacturerLogo)
	return d, err
}
