package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultBatchSize is the number of images buffered by Add before they are
// flushed to the database.
const DefaultBatchSize = 100

// Metadata describes an archive.
type Metadata struct {
	Name        string
	Description string
	Version     string
}

// ToMap converts Metadata to rows of the metadata table.
func (m Metadata) ToMap() map[string]string {
	result := map[string]string{"format": "png"}
	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Version != "" {
		result["version"] = m.Version
	}
	return result
}

// Entry is one buffered image.
type Entry struct {
	Name string
	Data []byte // PNG data (gzip-compressed before storage)
}

// SQLite stores images in a single database file.
type SQLite struct {
	db        *sql.DB
	now       func() time.Time
	path      string
	batch     []Entry
	batchSize int
	mu        sync.Mutex
}

// NewSQLite opens (or creates) an archive and initializes its schema.
func NewSQLite(path string, metadata Metadata) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store requires a database path")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := insertMetadata(db, metadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert metadata: %w", err)
	}

	return &SQLite{
		db:        db,
		now:       time.Now,
		path:      path,
		batch:     make([]Entry, 0, DefaultBatchSize),
		batchSize: DefaultBatchSize,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT NOT NULL,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS images (
			name TEXT NOT NULL PRIMARY KEY,
			created_at INTEGER NOT NULL,
			image_data BLOB NOT NULL
		);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func insertMetadata(db *sql.DB, meta Metadata) error {
	if _, err := db.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	stmt, err := db.Prepare("INSERT INTO metadata (name, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	for key, value := range meta.ToMap() {
		if _, err := stmt.Exec(key, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}
	return nil
}

// Save stores data under a new timestamped name.
func (s *SQLite) Save(ctx context.Context, data []byte) (string, error) {
	compressed, err := gzipCompress(data)
	if err != nil {
		return "", fmt.Errorf("failed to compress image: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now()
	for n := 0; ; n++ {
		name := timestampName(t, n)
		res, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO images (name, created_at, image_data) VALUES (?, ?, ?)",
			name, t.Unix(), compressed,
		)
		if err != nil {
			return "", fmt.Errorf("write failed: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			continue
		}
		return name, nil
	}
}

// SaveAs stores data under name immediately.
func (s *SQLite) SaveAs(ctx context.Context, name string, data []byte) error {
	if !ValidName(name) {
		return fmt.Errorf("invalid image name %q", name)
	}
	if err := s.Add(name, data); err != nil {
		return err
	}
	return s.Flush()
}

// Add buffers an image; a full batch is flushed automatically.
func (s *SQLite) Add(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batch = append(s.batch, Entry{Name: name, Data: data})
	if len(s.batch) >= s.batchSize {
		return s.flushLocked()
	}
	return nil
}

// Flush writes any buffered images to the database.
func (s *SQLite) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// flushLocked must be called with s.mu held.
func (s *SQLite) flushLocked() error {
	if len(s.batch) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO images (name, created_at, image_data) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	created := s.now().Unix()
	for _, e := range s.batch {
		compressed, err := gzipCompress(e.Data)
		if err != nil {
			return fmt.Errorf("failed to compress %s: %w", e.Name, err)
		}
		if _, err := stmt.Exec(e.Name, created, compressed); err != nil {
			return fmt.Errorf("failed to insert %s: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.batch = s.batch[:0]
	return nil
}

// Load returns the ungzipped PNG stored under name.
func (s *SQLite) Load(ctx context.Context, name string) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRowContext(ctx, "SELECT image_data FROM images WHERE name = ?", name).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query image: %w", err)
	}

	data, err := gzipDecompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress image: %w", err)
	}
	return data, nil
}

// Count returns the number of stored images.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM images").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return n, nil
}

// Metadata reads the archive metadata.
func (s *SQLite) Metadata() (Metadata, error) {
	rows, err := s.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	return Metadata{
		Name:        values["name"],
		Description: values["description"],
		Version:     values["version"],
	}, nil
}

// Close flushes buffered images and closes the database.
func (s *SQLite) Close() error {
	if err := s.Flush(); err != nil {
		s.db.Close()
		return err
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)

	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	return io.ReadAll(gr)
}
