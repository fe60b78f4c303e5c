package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func init() {
	// Store queries are written with ? placeholders and rebound per driver.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to databaseURL. postgres:// URLs use pgx; sqlite: and file:
// URLs use the pure-Go SQLite driver, which is what local runs and tests use.
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	driver, dsn := "pgx", databaseURL
	switch {
	case strings.HasPrefix(databaseURL, "sqlite:"):
		driver, dsn = "sqlite", strings.TrimPrefix(databaseURL, "sqlite:")
	case strings.HasPrefix(databaseURL, "file:"):
		driver = "sqlite"
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if driver == "sqlite" {
		// A single connection serialises writers and keeps :memory: databases shared.
		conn.SetMaxOpenConns(1)
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetConnMaxLifetime(2 * time.Hour)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return conn, nil
}
