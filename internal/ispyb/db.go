package ispyb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DBConfig configures the ISPyB connection pool.
type DBConfig struct {
	// URL is the MySQL DSN, e.g. "user:pass@tcp(host:3306)/ispyb".
	URL string

	// MaxOpenConns limits concurrently open connections. Zero means
	// unlimited.
	MaxOpenConns int

	// MaxIdleConns limits idle connections kept in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is the maximum age of a pooled connection.
	ConnMaxLifetime time.Duration

	// ConnMaxIdleTime is how long a connection may sit idle.
	ConnMaxIdleTime time.Duration
}

// normalizeDSN parses the DSN and forces the settings the repository
// depends on: parseTime so datetime columns scan into time.Time, and
// UTC so session timestamps are not shifted into the server locale.
func normalizeDSN(url string) (string, error) {
	cfg, err := mysql.ParseDSN(url)
	if err != nil {
		return "", fmt.Errorf("invalid database URL: %w", err)
	}

	cfg.ParseTime = true
	cfg.Loc = time.UTC

	return cfg.FormatDSN(), nil
}

// Open opens the ISPyB connection pool. No connection is established
// until the pool is first used; callers that need to fail fast should
// ping with a deadline after Open returns.
func Open(cfg DBConfig) (*sql.DB, error) {
	dsn, err := normalizeDSN(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}
