// Package mysql provides a MySQL implementation of the metadata store.
//
// It targets MySQL-protocol databases. Embeddings and free-form metadata are
// stored as JSON columns; uniqueness of (user_id, content_hash) is enforced
// by a composite unique key that ignores the NULL hashes of conversation
// records.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/datasage-ai/membank-go/pkg/metastore"
)

// Store implements metastore.Store using MySQL as the backend.
type Store struct {
	db    *sql.DB
	table string
}

// Config contains configuration for creating a MySQL store.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string

	// TableName is the name of the table to use. Defaults to "membank_records".
	TableName string
}

// NewStore creates a new MySQL-backed metadata store.
func NewStore(cfg *Config) (*Store, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLStore: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewMySQLStore: %w", err)
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

// initTables initializes the table. Indexes are declared inline because
// MySQL has no CREATE INDEX IF NOT EXISTS.
func (s *Store) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			kind VARCHAR(32) NOT NULL,
			content MEDIUMTEXT NOT NULL,
			summary TEXT,
			data_type VARCHAR(64),
			linked_memory_id VARCHAR(64),
			content_hash VARCHAR(64),
			embedding JSON NOT NULL,
			metadata JSON,
			created_at DATETIME(6) NOT NULL,
			last_accessed_at DATETIME(6) NOT NULL,
			decayed_at DATETIME(6),
			relevance_score DOUBLE NOT NULL DEFAULT 1.0,
			access_count INT NOT NULL DEFAULT 0,
			UNIQUE KEY uq_user_hash (user_id, content_hash),
			KEY idx_user_kind (user_id, kind)
		)
	`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}
	return nil
}

// Get retrieves a record by ID. Returns (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, id string) (*metastore.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, recordColumns, s.table)

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
// already exists. INSERT IGNORE turns either uniqueness violation into zero
// affected rows, which reports the conflict.
func (s *Store) Insert(ctx context.Context, record *metastore.Record) (bool, error) {
	query := fmt.Sprintf(`
		INSERT IGNORE INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
		REPLACE INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.table)

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
