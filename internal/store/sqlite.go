package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyPhrase is returned for a phrase with an empty reading or text.
var ErrEmptyPhrase = errors.New("reading and phrase must not be empty")

// Store is the SQLite user phrase table. It satisfies the host's
// Load/Save phrase store contract.
type Store struct {
	db   *sql.DB
	path string
}

// Option configures Open.
type Option func(*options)

type options struct {
	busyTimeout time.Duration
}

// WithBusyTimeout sets how long a writer waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.busyTimeout = d
		}
	}
}

// Open opens or creates the SQLite database at the given path and runs migrations.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{busyTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d", path, o.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, err
	}

	// Phrases are personal; keep the file private.
	_ = os.Chmod(path, 0600)

	return &Store{db: db, path: path}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func normalize(reading, text string) (string, string, error) {
	reading = norm.NFC.String(strings.TrimSpace(reading))
	text = norm.NFC.String(strings.TrimSpace(text))
	if reading == "" || text == "" {
		return "", "", ErrEmptyPhrase
	}
	return reading, text, nil
}

// Load returns the phrase table, phrases in insertion order per reading.
func (s *Store) Load() (map[string][]string, error) {
	rows, err := s.db.Query(`SELECT reading, phrase FROM user_phrases ORDER BY reading, position`)
	if err != nil {
		return nil, fmt.Errorf("query phrases: %w", err)
	}
	defer rows.Close()

	phrases := make(map[string][]string)
	for rows.Next() {
		var reading, text string
		if err := rows.Scan(&reading, &text); err != nil {
			return nil, fmt.Errorf("scan phrase: %w", err)
		}
		phrases[reading] = append(phrases[reading], text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read phrases: %w", err)
	}
	return phrases, nil
}

// Save replaces the table with phrases. Rows that survive keep their
// creation time and source; new rows are recorded as marked.
func (s *Store) Save(phrases map[string][]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	type meta struct {
		createdAt int64
		source    string
	}
	existing := make(map[[2]string]meta)
	rows, err := tx.Query(`SELECT reading, phrase, created_at, source FROM user_phrases`)
	if err != nil {
		return fmt.Errorf("query phrases: %w", err)
	}
	for rows.Next() {
		var key [2]string
		var m meta
		if err := rows.Scan(&key[0], &key[1], &m.createdAt, &m.source); err != nil {
			rows.Close()
			return fmt.Errorf("scan phrase: %w", err)
		}
		existing[key] = m
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read phrases: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM user_phrases`); err != nil {
		return fmt.Errorf("clear phrases: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO user_phrases (reading, phrase, position, created_at, source)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixNano()
	for reading, list := range phrases {
		for i, text := range list {
			r, t, err := normalize(reading, text)
			if err != nil {
				return fmt.Errorf("phrase %q for %q: %w", text, reading, err)
			}
			m, ok := existing[[2]string{r, t}]
			if !ok {
				m = meta{createdAt: now, source: string(SourceMarked)}
			}
			if _, err := stmt.Exec(r, t, i, m.createdAt, m.source); err != nil {
				return fmt.Errorf("insert phrase: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Add appends a phrase to its reading. It reports false when the phrase is
// already present.
func (s *Store) Add(reading, text string, source Source) (bool, error) {
	reading, text, err := normalize(reading, text)
	if err != nil {
		return false, err
	}

	result, err := s.db.Exec(`
		INSERT OR IGNORE INTO user_phrases (reading, phrase, position, created_at, source)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM user_phrases WHERE reading = ?), ?, ?)`,
		reading, text, reading, time.Now().UnixNano(), string(source),
	)
	if err != nil {
		return false, fmt.Errorf("insert phrase: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Merge adds every phrase not yet present and returns how many were added.
func (s *Store) Merge(phrases map[string][]string, source Source) (int, error) {
	added := 0
	for reading, list := range phrases {
		for _, text := range list {
			ok, err := s.Add(reading, text, source)
			if err != nil {
				return added, err
			}
			if ok {
				added++
			}
		}
	}
	return added, nil
}

// Remove deletes a phrase. It reports false when the phrase was absent.
func (s *Store) Remove(reading, text string) (bool, error) {
	reading, text, err := normalize(reading, text)
	if err != nil {
		return false, err
	}
	result, err := s.db.Exec(`DELETE FROM user_phrases WHERE reading = ? AND phrase = ?`, reading, text)
	if err != nil {
		return false, fmt.Errorf("delete phrase: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// List returns every phrase row ordered by reading then position. A
// non-empty prefix limits the rows to readings starting with it.
func (s *Store) List(prefix string) ([]Phrase, error) {
	query := `SELECT reading, phrase, position, created_at, source FROM user_phrases`
	var args []any
	if prefix != "" {
		query += ` WHERE substr(reading, 1, length(?)) = ?`
		p := norm.NFC.String(prefix)
		args = append(args, p, p)
	}
	query += ` ORDER BY reading, position`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query phrases: %w", err)
	}
	defer rows.Close()

	var phrases []Phrase
	for rows.Next() {
		var p Phrase
		var createdAt int64
		var source string
		if err := rows.Scan(&p.Reading, &p.Text, &p.Position, &createdAt, &source); err != nil {
			return nil, fmt.Errorf("scan phrase: %w", err)
		}
		p.CreatedAt = time.Unix(0, createdAt)
		p.Source = Source(source)
		phrases = append(phrases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read phrases: %w", err)
	}
	return phrases, nil
}

// Count returns the number of stored phrases.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM user_phrases`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count phrases: %w", err)
	}
	return n, nil
}

// Verify runs SQLite's integrity check and confirms the schema.
func (s *Store) Verify() error {
	var result string
	if err := s.db.QueryRow(`PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return ValidateSchema(s.db)
}

// MigrationStatus reports the schema version of the open database.
func (s *Store) MigrationStatus() (*MigrationStatus, error) {
	return GetMigrationStatus(s.db)
}
