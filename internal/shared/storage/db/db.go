package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"golang.org/x/sync/singleflight"

	"reflection-backend/internal/shared/telemetry"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var openDB = sql.Open

// shared backs GetSingleton.
var shared struct {
	mu    sync.Mutex
	db    *sql.DB
	group singleflight.Group
}

// IsLambdaRuntime reports whether the current process is running in AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// DefaultLambdaOptions returns conservative defaults for Lambda concurrency.
func DefaultLambdaOptions() Options {
	return Options{
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 30 * time.Second,
		ConnMaxLifetime: 15 * time.Minute,
		PingTimeout:     3 * time.Second,
	}
}

// DefaultServerOptions returns defaults for long-running server processes.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// DefaultMigrateOptions returns defaults for short-lived CLI migrations.
func DefaultMigrateOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// envOverrides maps DB_* variables onto Options fields.
var envOverrides = []struct {
	key   string
	apply func(*Options, string) error
}{
	{"DB_MAX_OPEN_CONNS", intField(func(o *Options, v int) { o.MaxOpenConns = v })},
	{"DB_MAX_IDLE_CONNS", intField(func(o *Options, v int) { o.MaxIdleConns = v })},
	{"DB_CONN_MAX_LIFETIME", durationField(func(o *Options, v time.Duration) { o.ConnMaxLifetime = v })},
	{"DB_CONN_MAX_IDLE_TIME", durationField(func(o *Options, v time.Duration) { o.ConnMaxIdleTime = v })},
	{"DB_PING_TIMEOUT", durationField(func(o *Options, v time.Duration) { o.PingTimeout = v })},
}

// OptionsFromEnv overrides defaults with DB_* env vars if present. Malformed
// values are logged and ignored.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	for _, o := range envOverrides {
		raw := strings.TrimSpace(os.Getenv(o.key))
		if raw == "" {
			continue
		}
		if err := o.apply(&opts, raw); err != nil {
			telemetry.Warn("db.env_invalid", map[string]any{"key": o.key, "error": err})
		}
	}
	return opts
}

func intField(set func(*Options, int)) func(*Options, string) error {
	return func(o *Options, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		set(o, v)
		return nil
	}
}

func durationField(set func(*Options, time.Duration)) func(*Options, string) error {
	return func(o *Options, raw string) error {
		v, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		set(o, v)
		return nil
	}
}

// Connect opens a pgx-backed *sql.DB and verifies connectivity. The result
// is meant to be shared for the life of the process.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	database, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	applyOptions(database, opts)

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if err := Ping(ctx, database, timeout); err != nil {
		database.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	stats := database.Stats()
	telemetry.Info("db.connected", map[string]any{
		"max_open": stats.MaxOpenConnections,
		"open":     stats.OpenConnections,
		"idle":     stats.Idle,
	})
	return database, nil
}

// GetSingleton returns a process-wide *sql.DB. Concurrent callers share one
// connection attempt; a failed attempt is retried by the next caller.
func GetSingleton(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	shared.mu.Lock()
	database := shared.db
	shared.mu.Unlock()
	if database != nil {
		return database, nil
	}

	v, err, _ := shared.group.Do("db", func() (any, error) {
		shared.mu.Lock()
		existing := shared.db
		shared.mu.Unlock()
		if existing != nil {
			return existing, nil
		}
		database, err := Connect(ctx, databaseURL, opts)
		if err != nil {
			return nil, err
		}
		shared.mu.Lock()
		shared.db = database
		shared.mu.Unlock()
		return database, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

func applyOptions(database *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	database.SetMaxOpenConns(opts.MaxOpenConns)
	database.SetMaxIdleConns(opts.MaxIdleConns)
	database.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		database.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

// Ping checks connectivity within timeout. A nil database reports an error.
func Ping(ctx context.Context, database *sql.DB, timeout time.Duration) error {
	if database == nil {
		return fmt.Errorf("database not configured")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return database.PingContext(pingCtx)
}
