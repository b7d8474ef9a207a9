package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Check connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS draws (
			issue_no TEXT PRIMARY KEY,
			draw_date TEXT NOT NULL,
			numbers_json TEXT NOT NULL,
			special_number INTEGER NOT NULL,
			source TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS prediction_runs (
			id BIGSERIAL PRIMARY KEY,
			issue_no TEXT NOT NULL,
			strategy TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			hit_count INTEGER,
			hit_rate DOUBLE PRECISION,
			hit_count_10 INTEGER,
			hit_rate_10 DOUBLE PRECISION,
			hit_count_14 INTEGER,
			hit_rate_14 DOUBLE PRECISION,
			hit_count_20 INTEGER,
			hit_rate_20 DOUBLE PRECISION,
			special_hit BOOLEAN,
			created_at TIMESTAMP NOT NULL,
			reviewed_at TIMESTAMP,
			UNIQUE (issue_no, strategy)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS prediction_picks (
			id BIGSERIAL PRIMARY KEY,
			run_id BIGINT NOT NULL REFERENCES prediction_runs(id) ON DELETE CASCADE,
			pick_type TEXT NOT NULL DEFAULT 'MAIN',
			number INTEGER NOT NULL,
			rank INTEGER NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			reason TEXT NOT NULL,
			UNIQUE (run_id, number)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS prediction_pools (
			id BIGSERIAL PRIMARY KEY,
			run_id BIGINT NOT NULL REFERENCES prediction_runs(id) ON DELETE CASCADE,
			pool_size INTEGER NOT NULL,
			numbers_json TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (run_id, pool_size)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS model_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// GetModelState retrieves a named state blob. ok is false when the key
// has never been written.
func (db *DB) GetModelState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM model_state WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// SetModelState stores a named state blob with its update timestamp.
func (db *DB) SetModelState(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO model_state (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, value, time.Now().UTC())
	return err
}
