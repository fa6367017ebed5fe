// Package sqlite provides a durable descriptor.Store backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/mrpt/descriptor"
)

// ErrCorruptVector is returned when a stored vector blob cannot be decoded.
var ErrCorruptVector = errors.New("sqlite: corrupt vector")

// maxBatch bounds the number of host parameters per statement.
const maxBatch = 500

// Store is a descriptor.Store persisted in a SQLite database.
// It also implements descriptor.Writer and descriptor.BatchGetter.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path. The special path
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy timeout: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS descriptors (
		id INTEGER PRIMARY KEY,
		dim INTEGER NOT NULL,
		vector BLOB NOT NULL
	);`)
	return err
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetVector implements descriptor.Store.
func (s *Store) GetVector(ctx context.Context, id descriptor.ID) ([]float64, error) {
	var (
		dim  int
		blob []byte
	)
	err := s.db.QueryRowContext(ctx, "SELECT dim, vector FROM descriptors WHERE id = ?", toKey(id)).Scan(&dim, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &descriptor.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %d: %w", id, err)
	}
	return decodeVector(id, dim, blob)
}

// GetMany implements descriptor.BatchGetter.
func (s *Store) GetMany(ctx context.Context, ids []descriptor.ID) ([][]float64, error) {
	found := make(map[descriptor.ID][]float64, len(ids))
	for start := 0; start < len(ids); start += maxBatch {
		chunk := ids[start:min(start+maxBatch, len(ids))]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = toKey(id)
		}
		query := "SELECT id, dim, vector FROM descriptors WHERE id IN (" +
			strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",") + ")"

		if err := s.scan(ctx, query, args, func(id descriptor.ID, dim int, blob []byte) error {
			v, err := decodeVector(id, dim, blob)
			if err != nil {
				return err
			}
			found[id] = v
			return nil
		}); err != nil {
			return nil, err
		}
	}

	out := make([][]float64, len(ids))
	for i, id := range ids {
		v, ok := found[id]
		if !ok {
			return nil, &descriptor.NotFoundError{ID: id}
		}
		out[i] = v
	}
	return out, nil
}

func (s *Store) scan(ctx context.Context, query string, args []any, fn func(id descriptor.ID, dim int, blob []byte) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key  int64
			dim  int
			blob []byte
		)
		if err := rows.Scan(&key, &dim, &blob); err != nil {
			return fmt.Errorf("sqlite: scan: %w", err)
		}
		if err := fn(fromKey(key), dim, blob); err != nil {
			return err
		}
	}
	return rows.Err()
}

// AllIdentifiers implements descriptor.Store.
func (s *Store) AllIdentifiers(ctx context.Context) ([]descriptor.ID, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM descriptors")
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	var ids []descriptor.ID
	for rows.Next() {
		var key int64
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		ids = append(ids, fromKey(key))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	// Keys are stored as signed integers, so SQL ordering differs above MaxInt64.
	slices.Sort(ids)
	return ids, nil
}

// AddMany implements descriptor.Writer. Existing identifiers are replaced.
func (s *Store) AddMany(ctx context.Context, descriptors []descriptor.Descriptor) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO descriptors (id, dim, vector) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("sqlite: prepare: %w", err)
	}
	defer stmt.Close()

	for _, d := range descriptors {
		if _, err = stmt.ExecContext(ctx, toKey(d.ID), len(d.Vector), encodeVector(d.Vector)); err != nil {
			return fmt.Errorf("sqlite: insert %d: %w", d.ID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Delete removes id. Deleting a missing identifier is not an error.
func (s *Store) Delete(ctx context.Context, id descriptor.ID) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM descriptors WHERE id = ?", toKey(id)); err != nil {
		return fmt.Errorf("sqlite: delete %d: %w", id, err)
	}
	return nil
}

// Len returns the number of stored descriptors.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM descriptors").Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count: %w", err)
	}
	return n, nil
}

func toKey(id descriptor.ID) int64 {
	return int64(id)
}

func fromKey(key int64) descriptor.ID {
	return descriptor.ID(key)
}

func encodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(x))
	}
	return buf
}

func decodeVector(id descriptor.ID, dim int, blob []byte) ([]float64, error) {
	if dim < 0 || len(blob) != 8*dim {
		return nil, fmt.Errorf("%w: descriptor %d has %d bytes for %d dimensions", ErrCorruptVector, id, len(blob), dim)
	}
	v := make([]float64, dim)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[8*i:]))
	}
	return v, nil
}

var (
	_ descriptor.Store       = (*Store)(nil)
	_ descriptor.Writer      = (*Store)(nil)
	_ descriptor.BatchGetter = (*Store)(nil)
)
