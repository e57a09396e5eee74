// Package postgres provides a PostgreSQL implementation of the metadata store.
//
// PostgreSQL suits multi-process deployments that need durable session
// continuity. Embeddings and free-form metadata are stored as JSONB.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/datasage-ai/membank-go/pkg/metastore"
)

// Store implements metastore.Store using PostgreSQL as the backend.
type Store struct {
	db    *sql.DB
	table string
}

// Config contains configuration for creating a PostgreSQL store.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string

	// TableName is the name of the table to use. Defaults to "membank_records".
	TableName string

	// SSLMode is the libpq sslmode value. Defaults to "disable".
	SSLMode string
}

// NewStore creates a new PostgreSQL-backed metadata store.
func NewStore(cfg *Config) (*Store, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresStore: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresStore: %w", err)
	}

	table := cfg.TableName
	if table == "" {
		table = "membank_records"
	}

	s := &Store{db: db, table: table}
	if err := s.initTables(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// initTables initializes the table and its indexes.
//
// content_hash is NULL for conversation records; PostgreSQL treats NULLs as
// distinct in unique indexes, so only artifacts are constrained.
func (s *Store) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			content TEXT NOT NULL,
			summary TEXT,
			data_type TEXT,
			linked_memory_id TEXT,
			content_hash TEXT,
			embedding JSONB NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			last_accessed_at TIMESTAMPTZ NOT NULL,
			decayed_at TIMESTAMPTZ,
			relevance_score DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			access_count INTEGER NOT NULL DEFAULT 0
		)
	`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexes := []string{
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_user_hash ON %s(user_id, content_hash)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user_kind ON %s(user_id, kind)`, s.table, s.table),
	}
	for _, q := range indexes {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("initTables: %w", err)
		}
	}
	return nil
}

// Get retrieves a record by ID. Returns (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, id string) (*metastore.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, recordColumns, s.table)

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return record, nil
}

// Insert inserts a record unless its ID or (user_id, content_hash) pair
// already exists. ON CONFLICT DO NOTHING turns either uniqueness violation
// into zero affected rows, which reports the conflict.
func (s *Store) Insert(ctx context.Context, record *metastore.Record) (bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT DO NOTHING
	`, s.table, recordColumns)

	args, err := recordArgs(record)
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Insert: %w", err)
	}
	return affected > 0, nil
}

// Set upserts a record, replacing it entirely if it exists.
func (s *Store) Set(ctx context.Context, record *metastore.Record) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			kind = EXCLUDED.kind,
			content = EXCLUDED.content,
			summary = EXCLUDED.summary,
			data_type = EXCLUDED.data_type,
			linked_memory_id = EXCLUDED.linked_memory_id,
			content_hash = EXCLUDED.content_hash,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			created_at = EXCLUDED.created_at,
			last_accessed_at = EXCLUDED.last_accessed_at,
			decayed_at = EXCLUDED.decayed_at,
			relevance_score = EXCLUDED.relevance_score,
			access_count = EXCLUDED.access_count
	`, s.table, recordColumns)

	args, err := recordArgs(record)
	if err != nil {
		return fmt.Errorf("Set: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	return nil
}

// Delete removes a record by ID. Returns true if a record was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("Delete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Delete: %w", err)
	}
	return affected > 0, nil
}

// Query returns every record matching all filter equalities, keyed by ID.
// Filters on fields outside metastore.FilterKeys match nothing.
func (s *Store) Query(ctx context.Context, filters map[string]interface{}) (map[string]*metastore.Record, error) {
	whereClause, args, ok := buildWhereClause(filters)
	if !ok {
		return map[string]*metastore.Record{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s %s`, recordColumns, s.table, whereClause)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]*metastore.Record)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("Query: %w", err)
		}
		out[record.ID] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Query: %w", err)
	}
	return out, nil
}

// All returns every record in the store.
func (s *Store) All(ctx context.Context) ([]*metastore.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at`, recordColumns, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("All: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*metastore.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("All: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("All: %w", err)
	}
	return out, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
