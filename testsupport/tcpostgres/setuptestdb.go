//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/livetiming-relay/pkg/db/migrate"
	"github.com/mpapenbr/livetiming-relay/pkg/db/postgres"
)

// create a pg connection pool for the relay testdatabase
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	db, err := StartRelayDB(ctx)
	if err != nil {
		log.Fatal(err)
	}
	dbURL, err := db.URL(ctx)
	if err != nil {
		log.Fatal(err)
	}
	return initPool(ctx, dbURL)
}

// SetupExternalTestDb uses the database given by env var TESTDB_URL
func SetupExternalTestDb() *pgxpool.Pool {
	return initPool(context.Background(), os.Getenv("TESTDB_URL"))
}

func initPool(ctx context.Context, dbURL string) *pgxpool.Pool {
	if err := migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}
	pool, err := postgres.InitWithURL(ctx, dbURL)
	if err != nil {
		log.Fatal(err)
	}
	return pool
}

func ClearSessionTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from relay_session")
}

func ClearSnapshotTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from snapshot")
}

func ClearLapTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from lap_record")
}

func ClearDriverTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from driver_reference")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearSnapshotTable(pool)
	ClearLapTable(pool)
	ClearSessionTable(pool)
	ClearDriverTable(pool)
}
