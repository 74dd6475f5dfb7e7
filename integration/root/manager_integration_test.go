//go:build integration

package root

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/goforj/datapool"
	"github.com/goforj/datapool/driver/postgresconn"
	"github.com/goforj/datapool/poolcore"
)

// TestManagerLifecycleOverPostgres drives the full lifecycle against a
// real backend: warm-up, retried acquisition, cached reads,
// invalidation, health scoring, and shutdown with restart.
func TestManagerLifecycleOverPostgres(t *testing.T) {
	ctx := context.Background()
	container, addr := startPostgres(t, ctx)
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Terminate(shutdownCtx)
	})

	dsn := "postgres://user:pass@" + addr + "/app?sslmode=disable"
	dialer := newPostgresDialer(t, dsn)
	m := datapool.NewManager(datapool.Config{
		ConnectionLimit: 4,
		MaxIdle:         2,
		CacheTTL:        time.Minute,
		CacheCapacity:   50,
	}, dialer)

	if _, err := m.Execute(ctx, "CREATE TABLE positions (symbol TEXT PRIMARY KEY, qty INTEGER)"); err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	if _, err := m.Execute(ctx, "INSERT INTO positions (symbol, qty) VALUES ($1, $2)", "btc", 3); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	snap := m.Health()
	if !snap.WarmedUp {
		t.Fatalf("expected warmed pool, got %+v", snap)
	}
	if score := m.Score(); score < 90 {
		t.Fatalf("expected healthy score, got %d", score)
	}

	const query = "SELECT symbol, qty FROM positions ORDER BY symbol"
	first, err := m.ExecuteCached(ctx, query, nil, datapool.QueryOptions{})
	if err != nil {
		t.Fatalf("cached select failed: %v", err)
	}
	if len(first) != 1 || first[0]["symbol"] != "btc" {
		t.Fatalf("unexpected rows: %v", first)
	}

	// The cached result survives a backend write until invalidated.
	if _, err := m.Execute(ctx, "DELETE FROM positions"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	cached, err := m.ExecuteCached(ctx, query, nil, datapool.QueryOptions{})
	if err != nil {
		t.Fatalf("cached re-read failed: %v", err)
	}
	if len(cached) != 1 {
		t.Fatalf("expected cached rows, got %v", cached)
	}
	m.Invalidate("")
	fresh, err := m.ExecuteCached(ctx, query, nil, datapool.QueryOptions{})
	if err != nil {
		t.Fatalf("fresh read failed: %v", err)
	}
	if len(fresh) != 0 {
		t.Fatalf("expected empty result after invalidation, got %v", fresh)
	}

	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if snap := m.Health(); snap.PoolTotal != 0 {
		t.Fatalf("expected drained pool, got %+v", snap)
	}

	// First use after shutdown builds a fresh pool against the same backend.
	rows, err := m.Execute(ctx, "SELECT 1 AS one")
	if err != nil {
		t.Fatalf("execute after restart failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("unexpected rows after restart: %v", rows)
	}
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("final shutdown failed: %v", err)
	}
}

func newPostgresDialer(t *testing.T, dsn string) poolcore.Dialer {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for {
		dialer, err := postgresconn.New(postgresconn.Config{DSN: dsn})
		if err == nil {
			return dialer
		}
		if time.Now().After(deadline) {
			t.Fatalf("postgres never became ready: %v", err)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (testcontainers.Container, string) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-bookworm",
		Env:          map[string]string{"POSTGRES_PASSWORD": "pass", "POSTGRES_USER": "user", "POSTGRES_DB": "app"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("postgres container host: %v", err)
	}
	port, err := container.MappedPort(ctx, nat.Port("5432/tcp"))
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("postgres container port: %v", err)
	}
	return container, net.JoinHostPort(host, port.Port())
}
