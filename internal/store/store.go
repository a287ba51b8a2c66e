// Package store implements the entity store: a durable mapping from a
// unique entity name to a flat attribute bag, backed by SQLite.
//
// Each Put runs in its own transaction, so a concurrent reader in another
// process never observes a partially written entity. The scraper is the only
// writer; the presentation side opens the same file read-only.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when no entity exists under the requested name.
var ErrNotFound = errors.New("store: entity not found")

// Attrs is the attribute bag of a single entity.
type Attrs map[string][]byte

// Store handles durable entity storage on a single SQLite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS facts (
	entity TEXT NOT NULL,
	key TEXT NOT NULL,
	value BLOB NOT NULL,
	PRIMARY KEY (entity, key)
);
`

// Open opens (and if necessary creates) the entity store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open entity store at %q: %w", path, err)
	}
	// Limit SQLite to a single open connection to avoid "database is locked" errors
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to entity store at %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create entity store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put creates or refreshes an entity with the given attributes. The write is
// atomic: all facts land in one transaction, or none do.
func (s *Store) Put(name string, facts Attrs) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin upsert for %q: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT INTO entities (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return fmt.Errorf("failed to upsert entity %q: %w", name, err)
	}
	for key, value := range facts {
		_, err := tx.Exec(
			`INSERT INTO facts (entity, key, value) VALUES (?, ?, ?)
			 ON CONFLICT(entity, key) DO UPDATE SET value = excluded.value`,
			name, key, value,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert fact %q of %q: %w", key, name, err)
		}
	}
	return tx.Commit()
}

// Get returns the attribute bag of the named entity, or ErrNotFound.
func (s *Store) Get(name string) (Attrs, error) {
	ok, err := s.Exists(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	rows, err := s.db.Query(`SELECT key, value FROM facts WHERE entity = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read facts of %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	attrs := make(Attrs)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan fact of %q: %w", name, err)
		}
		attrs[key] = value
	}
	return attrs, rows.Err()
}

// Exists reports whether an entity with the given name has been cached.
func (s *Store) Exists(name string) (bool, error) {
	var found int
	err := s.db.QueryRow(`SELECT 1 FROM entities WHERE name = ?`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up entity %q: %w", name, err)
	}
	return true, nil
}

// ScanPrefix returns the attribute bags of all entities whose name starts
// with prefix, keyed by entity name.
func (s *Store) ScanPrefix(prefix string) (map[string]Attrs, error) {
	pattern := escapeLike(prefix) + "%"
	rows, err := s.db.Query(
		`SELECT entity, key, value FROM facts WHERE entity LIKE ? ESCAPE '\' ORDER BY entity`,
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan prefix %q: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]Attrs)
	for rows.Next() {
		var entity, key string
		var value []byte
		if err := rows.Scan(&entity, &key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan prefix %q: %w", prefix, err)
		}
		attrs, ok := result[entity]
		if !ok {
			attrs = make(Attrs)
			result[entity] = attrs
		}
		attrs[key] = value
	}
	return result, rows.Err()
}

// escapeLike escapes the LIKE metacharacters in a literal prefix. The event
// namespace prefix contains an underscore, which LIKE would otherwise treat
// as a single-character wildcard.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
