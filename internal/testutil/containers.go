// Package testutil starts throwaway Postgres and Redis containers for
// integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresPort = "5432/tcp"
	redisPort    = "6379/tcp"
)

// RequireIntegration skips t unless DUCKNEST_INTEGRATION is set and -short is off.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if testing.Short() || os.Getenv("DUCKNEST_INTEGRATION") == "" {
		t.Skip("set DUCKNEST_INTEGRATION=1 to run container-backed tests")
	}
}

// StartPostgres runs postgres:16-alpine and returns its DSN. The container is
// terminated when t finishes.
func StartPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{postgresPort},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "ducknest",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort(postgresPort),
			),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := c.MappedPort(ctx, postgresPort)
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}
	return fmt.Sprintf("postgres://test:test@%s:%s/ducknest?sslmode=disable", host, port.Port())
}

// StartRedis runs redis:7-alpine and returns a redis:// URL for it.
func StartRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{redisPort},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := c.MappedPort(ctx, redisPort)
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}
