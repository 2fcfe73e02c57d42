package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io/fs"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// withMockOpen routes Connect through sqlmock connections.
func withMockOpen(t *testing.T, fail int32) *int32 {
	t.Helper()
	var calls int32
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		if atomic.AddInt32(&calls, 1) <= fail {
			return nil, driver.ErrBadConn
		}
		database, _, err := sqlmock.New()
		return database, err
	}
	t.Cleanup(func() { openDB = prev })
	return &calls
}

func resetShared() {
	shared.mu.Lock()
	shared.db = nil
	shared.mu.Unlock()
}

func TestGetSingletonReturnsSamePointer(t *testing.T) {
	calls := withMockOpen(t, 0)
	resetShared()
	t.Cleanup(resetShared)

	db1, err := GetSingleton(context.Background(), "ignored", DefaultLambdaOptions())
	if err != nil {
		t.Fatalf("GetSingleton first: %v", err)
	}
	db2, err := GetSingleton(context.Background(), "ignored", DefaultLambdaOptions())
	if err != nil {
		t.Fatalf("GetSingleton second: %v", err)
	}
	if db1 != db2 {
		t.Fatalf("expected singleton pointers to match")
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Fatalf("expected one open, got %d", got)
	}
}

func TestGetSingletonSharesConcurrentInit(t *testing.T) {
	calls := withMockOpen(t, 0)
	resetShared()
	t.Cleanup(resetShared)

	var wg sync.WaitGroup
	results := make([]*sql.DB, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = GetSingleton(context.Background(), "ignored", DefaultLambdaOptions())
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		if got == nil || got != results[0] {
			t.Fatalf("expected every caller to share one pool")
		}
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Fatalf("expected one open, got %d", got)
	}
}

func TestOptionsFromEnvAppliesOverrides(t *testing.T) {
	withMockOpen(t, 0)

	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")

	opts := OptionsFromEnv(DefaultServerOptions())
	db, err := Connect(context.Background(), "ignored", opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	stats := db.Stats()
	if stats.MaxOpenConnections != 7 {
		t.Fatalf("expected MaxOpenConnections=7, got %d", stats.MaxOpenConnections)
	}
	if opts.MaxIdleConns != 3 {
		t.Fatalf("expected MaxIdleConns=3, got %d", opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime != 20*time.Minute {
		t.Fatalf("expected ConnMaxLifetime=20m, got %s", opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime != 45*time.Second {
		t.Fatalf("expected ConnMaxIdleTime=45s, got %s", opts.ConnMaxIdleTime)
	}
	if opts.PingTimeout != time.Second {
		t.Fatalf("expected PingTimeout=1s, got %s", opts.PingTimeout)
	}
}

func TestGetSingletonRetriesAfterFailure(t *testing.T) {
	withMockOpen(t, 1)
	resetShared()
	t.Cleanup(resetShared)

	_, err := GetSingleton(context.Background(), "ignored", DefaultLambdaOptions())
	if err == nil {
		t.Fatalf("expected first call to fail")
	}
	db2, err := GetSingleton(context.Background(), "ignored", DefaultLambdaOptions())
	if err != nil {
		t.Fatalf("expected second call to succeed: %v", err)
	}
	if db2 == nil {
		t.Fatalf("expected db after retry")
	}
}

func TestPingRequiresDatabase(t *testing.T) {
	if err := Ping(context.Background(), nil, time.Second); err == nil {
		t.Fatalf("expected error for nil database")
	}

	database, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer database.Close()
	mock.ExpectPing()
	if err := Ping(context.Background(), database, 0); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestOptionsFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")
	t.Setenv("DB_PING_TIMEOUT", "soon")

	opts := OptionsFromEnv(DefaultLambdaOptions())
	if opts != DefaultLambdaOptions() {
		t.Fatalf("expected defaults, got %+v", opts)
	}
}

func TestConnectRequiresURL(t *testing.T) {
	if _, err := Connect(context.Background(), " ", DefaultServerOptions()); err == nil {
		t.Fatalf("expected error for empty DATABASE_URL")
	}
}

func TestEmbeddedMigrationsAreGooseFiles(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, migrationsDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(entries))
	}
	for _, e := range entries {
		body, err := fs.ReadFile(migrationFiles, migrationsDir+"/"+e.Name())
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		if !strings.Contains(string(body), "-- +goose Up") || !strings.Contains(string(body), "-- +goose Down") {
			t.Fatalf("%s lacks goose annotations", e.Name())
		}
	}
}
