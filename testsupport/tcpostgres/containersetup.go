package tcpostgres

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultImage    = "postgres:16"
	defaultUser     = "relay"
	defaultPassword = "relay"
	defaultDatabase = "relay"
	containerName   = "livetiming-relay-test"
)

var postgresPort = nat.Port("5432/tcp")

// RelayDB is a postgres container prepared for the relay tables.
type RelayDB struct {
	testcontainers.Container
	user     string
	password string
	database string
}

type relayDBConfig struct {
	req      testcontainers.ContainerRequest
	user     string
	password string
	database string
}

type RelayDBOption func(cfg *relayDBConfig)

func WithImage(image string) RelayDBOption {
	return func(cfg *relayDBConfig) {
		cfg.req.Image = image
	}
}

func WithName(name string) RelayDBOption {
	return func(cfg *relayDBConfig) {
		cfg.req.Name = name
	}
}

func WithCredentials(user, password string) RelayDBOption {
	return func(cfg *relayDBConfig) {
		cfg.user = user
		cfg.password = password
	}
}

func WithDatabase(name string) RelayDBOption {
	return func(cfg *relayDBConfig) {
		cfg.database = name
	}
}

// StartRelayDB starts (or reuses) the test database container.
// The container is ready once postgres accepts connections after its
// init phase and the mapped port is reachable.
func StartRelayDB(ctx context.Context, opts ...RelayDBOption) (*RelayDB, error) {
	cfg := relayDBConfig{
		req: testcontainers.ContainerRequest{
			Image:        defaultImage,
			Name:         containerName,
			ExposedPorts: []string{string(postgresPort)},
			Cmd:          []string{"postgres", "-c", "fsync=off"},
		},
		user:     defaultUser,
		password: defaultPassword,
		database: defaultDatabase,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.req.Env = map[string]string{
		"POSTGRES_USER":     cfg.user,
		"POSTGRES_PASSWORD": cfg.password,
		"POSTGRES_DB":       cfg.database,
	}
	cfg.req.WaitingFor = wait.ForAll(
		wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30*time.Second),
		wait.ForListeningPort(postgresPort),
	).WithDeadline(1 * time.Minute)

	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: cfg.req,
			Started:          true,
			Reuse:            true,
		})
	if err != nil {
		return nil, err
	}
	return &RelayDB{
		Container: container,
		user:      cfg.user,
		password:  cfg.password,
		database:  cfg.database,
	}, nil
}

// URL returns the connection url for the mapped port.
func (db *RelayDB) URL(ctx context.Context) (string, error) {
	host, err := db.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := db.MappedPort(ctx, postgresPort)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s",
		db.user, db.password, host, port.Port(), db.database), nil
}
