// Package sqlstore keeps login credentials in a SQL database, one row per
// profile. PostgreSQL (pgx) and SQLite (modernc) are supported; the schema
// is created by embedded goose migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/patric-chuzhbe/hackorsnooze/internal/credstore"
)

const (
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is a credentials store backed by a *sql.DB.
type Store struct {
	database          *sql.DB
	driver            string
	profile           string
	connectionTimeout time.Duration
}

// New opens the database, applies the migrations and returns a Store
// reading and writing the row of profile.
func New(
	ctx context.Context,
	driver string,
	databaseDSN string,
	profile string,
	connectionTimeout time.Duration,
) (*Store, error) {
	dialect, err := gooseDialect(driver)
	if err != nil {
		return nil, err
	}

	database, err := sql.Open(driver, databaseDSN)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		database.Close()
		return nil,
			fmt.Errorf("in internal/credstore/sqlstore/sqlstore.go/New(): error while `database.PingContext()` calling: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		database.Close()
		return nil,
			fmt.Errorf("in internal/credstore/sqlstore/sqlstore.go/New(): error while `goose.SetDialect()` calling: %w", err)
	}
	if err := goose.UpContext(ctx, database, "migrations"); err != nil {
		database.Close()
		return nil,
			fmt.Errorf("in internal/credstore/sqlstore/sqlstore.go/New(): error while `goose.Up()` calling: %w", err)
	}

	return newFromDB(database, driver, profile, connectionTimeout), nil
}

func newFromDB(database *sql.DB, driver, profile string, connectionTimeout time.Duration) *Store {
	return &Store{
		database:          database,
		driver:            driver,
		profile:           profile,
		connectionTimeout: connectionTimeout,
	}
}

func gooseDialect(driver string) (string, error) {
	switch driver {
	case DriverPgx:
		return "postgres", nil
	case DriverSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// rebind turns $N placeholders into ?N for SQLite.
func (s *Store) rebind(query string) string {
	if s.driver == DriverSQLite {
		return strings.ReplaceAll(query, "$", "?")
	}

	return query
}

// Load returns the credentials of the store's profile.
func (s *Store) Load() (credstore.Credentials, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.connectionTimeout)
	defer cancel()

	var creds credstore.Credentials
	row := s.database.QueryRowContext(
		ctx,
		s.rebind(`SELECT token, username FROM credentials WHERE profile = $1`),
		s.profile,
	)
	if err := row.Scan(&creds.Token, &creds.Username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return credstore.Credentials{}, false, nil
		}
		return credstore.Credentials{}, false, err
	}

	if err := creds.Validate(); err != nil {
		return credstore.Credentials{}, false, err
	}

	return creds, true, nil
}

// Save upserts the pair in a single statement, so token and username
// always change together.
func (s *Store) Save(creds credstore.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.connectionTimeout)
	defer cancel()

	_, err := s.database.ExecContext(
		ctx,
		s.rebind(`
			INSERT INTO credentials (profile, token, username, saved_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (profile) DO UPDATE
					SET token = excluded.token,
						username = excluded.username,
						saved_at = excluded.saved_at
		`),
		s.profile,
		creds.Token,
		creds.Username,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("in internal/credstore/sqlstore/sqlstore.go/Save(): error while `database.ExecContext()` calling: %w", err)
	}

	return nil
}

func (s *Store) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.connectionTimeout)
	defer cancel()

	_, err := s.database.ExecContext(
		ctx,
		s.rebind(`DELETE FROM credentials WHERE profile = $1`),
		s.profile,
	)

	return err
}

func (s *Store) Close() error {
	return s.database.Close()
}
