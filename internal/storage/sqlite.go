package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a looked up row does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert hits a unique constraint
	ErrDuplicate = errors.New("duplicate")
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs statements against the database or an open transaction
type Queries struct {
	q    querier
	inTx bool
}

// Storage handles all database operations
type Storage struct {
	*Queries
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema.
// Transactions begin with BEGIN IMMEDIATE so that writers serialize on the database lock.
func NewStorage(dbPath string) (*Storage, error) {
	dsn := dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_txlock=immediate&_foreign_keys=on&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db, Queries: &Queries{q: db}}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables, indices and reference rows if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS domains (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT UNIQUE NOT NULL,
		scheme TEXT NOT NULL DEFAULT 'http',
		rating INTEGER NOT NULL DEFAULT 0,
		root_domain_id INTEGER REFERENCES domains(id),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sites (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain_id INTEGER UNIQUE NOT NULL REFERENCES domains(id),
		sites_city_id INTEGER,
		sites_type_id INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS hrefs_statuses (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS hrefs_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS hrefs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		domain_id INTEGER NOT NULL REFERENCES domains(id),
		site_id INTEGER NOT NULL REFERENCES sites(id),
		url TEXT NOT NULL,
		page_title TEXT NOT NULL DEFAULT '',
		link_url TEXT NOT NULL DEFAULT '',
		link_anchor TEXT NOT NULL DEFAULT '',
		external_links_count INTEGER NOT NULL DEFAULT 0,
		rating INTEGER NOT NULL DEFAULT 0,
		hrefs_status_id INTEGER NOT NULL REFERENCES hrefs_statuses(id),
		hrefs_type_id INTEGER REFERENCES hrefs_types(id),
		is_analized INTEGER NOT NULL DEFAULT 0,
		analized_date TEXT,
		comment TEXT,
		user_id INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS targets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		profile_id INTEGER NOT NULL REFERENCES profiles(id),
		register_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_domains_root ON domains(root_domain_id);
	CREATE INDEX IF NOT EXISTS idx_hrefs_domain ON hrefs(domain_id);
	CREATE INDEX IF NOT EXISTS idx_hrefs_review ON hrefs(is_analized, hrefs_status_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_hrefs_one_analized ON hrefs(domain_id) WHERE is_analized = 1;
	CREATE INDEX IF NOT EXISTS idx_targets_date ON targets(register_date);

	INSERT OR IGNORE INTO hrefs_statuses (id, name) VALUES
		(1, 'Pending'),
		(2, 'Successful'),
		(3, 'Link not found'),
		(4, 'Nofollow link'),
		(5, 'Page not indexed'),
		(6, 'Spam domain');
	`

	_, err := s.db.Exec(schema)
	return err
}

// InTx runs fn inside one transaction, committing if fn returns nil and rolling back otherwise
func (s *Storage) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&Queries{q: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Savepoint runs fn inside a named savepoint of the current transaction.
// On error only the work done since the savepoint is undone.
func (q *Queries) Savepoint(ctx context.Context, name string, fn func() error) error {
	if !q.inTx {
		return fmt.Errorf("savepoint %s requires a transaction", name)
	}

	if _, err := q.q.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to open savepoint: %w", err)
	}

	if err := fn(); err != nil {
		if _, rbErr := q.q.ExecContext(ctx, "ROLLBACK TO "+name); rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint failed: %v)", err, rbErr)
		}
		// ROLLBACK TO keeps the savepoint on the stack
		if _, relErr := q.q.ExecContext(ctx, "RELEASE "+name); relErr != nil {
			return fmt.Errorf("%w (release failed: %v)", err, relErr)
		}
		return err
	}

	if _, err := q.q.ExecContext(ctx, "RELEASE "+name); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for maintenance statements
func (s *Storage) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err comes from a UNIQUE or PRIMARY KEY constraint
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
