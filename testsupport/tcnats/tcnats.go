package tcnats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/nats-io/nats.go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupNats starts a NATS server with jetstream enabled and returns a
// connection to it. Tests are skipped in short mode.
func SetupNats(t *testing.T) *nats.Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("nats tests skipped in short mode")
	}
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "4222")
	if err != nil {
		t.Fatal(err)
	}
	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "nats:2.10",
				Cmd:          []string{"-js"},
				ExposedPorts: []string{string(port)},
				WaitingFor: wait.ForLog("Server is ready").
					WithStartupTimeout(30 * time.Second),
			},
			Started: true,
		})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		//nolint:errcheck // test cleanup
		container.Terminate(context.Background())
	})
	host, _ := container.Host(ctx)
	mapped, _ := container.MappedPort(ctx, port)
	nc, err := nats.Connect(fmt.Sprintf("nats://%s:%s", host, mapped.Port()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(nc.Close)
	return nc
}
