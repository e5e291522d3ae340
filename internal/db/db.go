package db

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/floorvault/apiserver/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	driverName      = "postgres"
	pingTimeout     = 5 * time.Second
	retryBackoff    = time.Second
	maxRetryBackoff = 8 * time.Second
	connMaxIdleTime = 2 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

// PostgresURL builds the connection URL shared by the server, the seeder
// and the migrator.
func PostgresURL(cfg config.DatabaseConfig) string {
	sslmode := "disable"
	if cfg.UseSSL {
		sslmode = "require"
	}
	return (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Path:     cfg.DBName,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}).String()
}

// Open connects to the catalog database and pings it, retrying with a
// doubling backoff up to cfg.Database.ConnectAttempts times.
func Open(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dbc := cfg.Database
	conn, err := sqlx.Open(driverName, PostgresURL(dbc))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbc.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(dbc.MaxOpenConns)
	}
	if dbc.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(dbc.MaxIdleConns)
	}
	conn.SetConnMaxIdleTime(connMaxIdleTime)
	conn.SetConnMaxLifetime(connMaxLifetime)

	attempts := max(dbc.ConnectAttempts, 1)
	backoff := retryBackoff
	for attempt := 1; ; attempt++ {
		err = ping(ctx, conn)
		if err == nil {
			return conn, nil
		}
		if attempt >= attempts {
			break
		}
		slog.Warn("database not ready", "attempt", attempt, "retry_in", backoff, "error", err)
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}

	_ = conn.Close()
	return nil, fmt.Errorf("ping database %s@%s: %w", dbc.DBName, dbc.Host, err)
}

func ping(ctx context.Context, conn *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return conn.PingContext(ctx)
}
