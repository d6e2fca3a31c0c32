// Package sqlite implements docstore.Store on an embedded SQLite database.
// Documents live in one table keyed by (collection, key); values are stored
// as canonical JSON so field increments and value-equality lookups can run
// inside the database via the JSON1 functions.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/roomstate/wbcache/docstore"
)

const timeFormat = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (collection, key)
);
CREATE INDEX IF NOT EXISTS idx_documents_value ON documents (collection, value);
`

// Store provides a SQLite-backed docstore.Store.
type Store struct {
	db *sql.DB
}

var _ docstore.Store = (*Store)(nil)

// Open opens (creating if needed) a SQLite store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite docstore: path is required")
	}

	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func validate(collection, key string) error {
	if collection == "" {
		return fmt.Errorf("sqlite docstore: collection is required")
	}
	if key == "" {
		return fmt.Errorf("sqlite docstore: key is required")
	}
	return nil
}

// canonicalJSON is the stored text form of a value. encoding/json sorts map
// keys, so equal values always produce equal text and SQL equality works as
// a value-equality query.
func canonicalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return string(b), nil
}

func decodeValue(raw string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

func (s *Store) FindOne(ctx context.Context, collection, key string) (docstore.Document, bool, error) {
	if err := validate(collection, key); err != nil {
		return docstore.Document{}, false, err
	}

	var raw, at string
	err := s.db.QueryRowContext(ctx,
		`SELECT value, updated_at FROM documents WHERE collection = ? AND key = ?`,
		collection, key).Scan(&raw, &at)
	if err == sql.ErrNoRows {
		return docstore.Document{}, false, nil
	}
	if err != nil {
		return docstore.Document{}, false, fmt.Errorf("find document: %w", err)
	}

	v, err := decodeValue(raw)
	if err != nil {
		return docstore.Document{}, false, err
	}
	ts, _ := time.Parse(timeFormat, at)
	return docstore.Document{Key: key, Value: v, UpdatedAt: ts}, true, nil
}

func (s *Store) Upsert(ctx context.Context, collection, key string, value any, at time.Time) error {
	if err := validate(collection, key); err != nil {
		return err
	}
	raw, err := canonicalJSON(value)
	if err != nil {
		return err
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		collection, key, raw, at.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (s *Store) IncrementField(ctx context.Context, collection, key, field string, amount int64, at time.Time) error {
	if err := validate(collection, key); err != nil {
		return err
	}
	if field == "" {
		return fmt.Errorf("sqlite docstore: field is required")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, value, updated_at)
		VALUES (?, ?, json_object(?, ?), ?)
		ON CONFLICT (collection, key) DO UPDATE SET
			value = json_set(documents.value, '$.' || ?,
				coalesce(json_extract(documents.value, '$.' || ?), 0) + ?),
			updated_at = excluded.updated_at`,
		collection, key, field, amount, at.Format(timeFormat),
		field, field, amount)
	if err != nil {
		return fmt.Errorf("increment field: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if err := validate(collection, key); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND key = ?`,
		collection, key); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *Store) FindKeysByValue(ctx context.Context, collection string, target any) ([]string, error) {
	if collection == "" {
		return nil, fmt.Errorf("sqlite docstore: collection is required")
	}
	raw, err := canonicalJSON(target)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM documents WHERE collection = ? AND value = ?`,
		collection, raw)
	if err != nil {
		return nil, fmt.Errorf("query by value: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT collection FROM documents
		 WHERE collection NOT LIKE 'system.%' ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) All(ctx context.Context, collection string) ([]docstore.Document, error) {
	if collection == "" {
		return nil, fmt.Errorf("sqlite docstore: collection is required")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, updated_at FROM documents WHERE collection = ?`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []docstore.Document
	for rows.Next() {
		var key, raw, at string
		if err := rows.Scan(&key, &raw, &at); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		v, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		ts, _ := time.Parse(timeFormat, at)
		out = append(out, docstore.Document{Key: key, Value: v, UpdatedAt: ts})
	}
	return out, rows.Err()
}
