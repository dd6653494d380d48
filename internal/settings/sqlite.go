package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultComponent is the component under which the local driver's settings
// are stored.
const DefaultComponent = "cdn-driver-local"

// SQLiteStore keeps component settings in a SQLite table shared with the
// rest of the application.
type SQLiteStore struct {
	db        *sql.DB
	component string
}

// OpenSQLite opens (and if needed initializes) the settings database at
// dbPath. An empty component selects DefaultComponent.
func OpenSQLite(ctx context.Context, dbPath string, component string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("settings database path must not be empty")
	}
	if component == "" {
		component = DefaultComponent
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, component: component}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS app_setting (
			component TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (component, key)
		);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Set writes a single setting, replacing any previous value.
func (s *SQLiteStore) Set(ctx context.Context, key string, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_setting(component, key, value) VALUES(?, ?, ?)
		 ON CONFLICT(component, key) DO UPDATE SET value = excluded.value`,
		s.component, key, value,
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Load snapshots every setting of the component. Settings are read once at
// driver construction, so the snapshot is what the driver sees.
func (s *SQLiteStore) Load(ctx context.Context) (Map, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_setting WHERE component = ?`, s.component)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	out := Map{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}

	return out, nil
}
