package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func retry(n int, fn func() error) error {
	backoff := 200 * time.Millisecond
	for i := 0; i < n; i++ {
		if err := fn(); err == nil {
			return nil
		}
		time.Sleep(backoff)
		if backoff < 3*time.Second {
			backoff *= 2
		}
	}
	return fmt.Errorf("retry: giving up after %d tries", n)
}

// StartTestPostgres runs a disposable Postgres with the appointment schema
// applied and returns a Store bound to it.
func StartTestPostgres(t testing.TB) *Store {
	t.Helper()

	// generous timeout for CI
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	// SQL wait: auth-ready, not just TCP open
	req := tc.ContainerRequest{
		Image: "postgres:16-alpine",
		Env: map[string]string{
			"POSTGRES_USER":     "scheduler",
			"POSTGRES_PASSWORD": "scheduler",
			"POSTGRES_DB":       "scheduler",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
			// DSN used only for readiness probing
			return fmt.Sprintf("host=%s port=%s user=scheduler password=scheduler dbname=scheduler sslmode=disable", host, port.Port())
		}).WithStartupTimeout(120 * time.Second).WithPollInterval(300 * time.Millisecond),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("start container: %v", err)
	}

	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://scheduler:scheduler@%s:%s/scheduler?sslmode=disable", host, mp.Port())

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	// make pool slightly more forgiving in CI
	cfg.MaxConns = 4
	cfg.MinConns = 0

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("pgxpool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("pg ping: %v", err)
	}

	// Retry migrations briefly — first heavy DDL can still race startup bits
	if err := retry(6, func() error {
		return Migrate(ctx, pool)
	}); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	return NewStore(pool)
}
