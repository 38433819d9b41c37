package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Folder stores each image as a file in one directory.
type Folder struct {
	now func() time.Time
	dir string
	mu  sync.Mutex
}

// NewFolder creates the directory if needed and returns a folder store.
func NewFolder(dir string) (*Folder, error) {
	if dir == "" {
		dir = "./output"
	}
	if err := os.MkdirAll(dir, 0o775); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &Folder{dir: dir, now: time.Now}, nil
}

// Dir returns the backing directory.
func (f *Folder) Dir() string {
	return f.dir
}

// Save writes data to a new timestamped file and returns its name.
func (f *Folder) Save(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	t := f.now()
	for n := 0; ; n++ {
		name := timestampName(t, n)
		file, err := os.OpenFile(filepath.Join(f.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", name, err)
		}

		if _, err := file.Write(data); err != nil {
			file.Close()
			os.Remove(filepath.Join(f.dir, name)) // nolint:errcheck // best effort cleanup
			return "", fmt.Errorf("write failed: %w", err)
		}
		if err := file.Close(); err != nil {
			return "", fmt.Errorf("write failed: %w", err)
		}
		return name, nil
	}
}

// SaveAs writes data under name, replacing an existing file.
func (f *Folder) SaveAs(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ValidName(name) {
		return fmt.Errorf("invalid image name %q", name)
	}
	if err := os.WriteFile(filepath.Join(f.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// Load reads the file stored under name.
func (f *Folder) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !ValidName(name) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(f.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Close is a no-op for folders.
func (f *Folder) Close() error {
	return nil
}
