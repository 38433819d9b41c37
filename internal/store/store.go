// Package store persists enhanced PNGs and hands back the name they can be
// retrieved under. Two backends exist: a plain output folder and a SQLite
// archive.
package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// ErrNotFound is returned when no image is stored under a name.
var ErrNotFound = errors.New("image not found")

// Store saves PNG payloads under generated names.
type Store interface {
	// Save stores data and returns the generated name.
	Save(ctx context.Context, data []byte) (string, error)
	// SaveAs stores data under an explicit name, replacing any previous entry.
	SaveAs(ctx context.Context, name string, data []byte) error
	// Load returns the payload stored under name.
	Load(ctx context.Context, name string) ([]byte, error)
	Close() error
}

// Format names a Store backend.
const (
	FormatFolder = "folder"
	FormatSQLite = "sqlite"
)

// Open creates a store of the given format at location (a directory for
// folder, a database file for sqlite).
func Open(format, location string) (Store, error) {
	switch format {
	case FormatFolder, "":
		return NewFolder(location)
	case FormatSQLite:
		return NewSQLite(location, Metadata{Name: "histeq", Description: "Contrast-enhanced images", Version: "1.0"})
	default:
		return nil, fmt.Errorf("invalid store format %q: must be 'folder' or 'sqlite'", format)
	}
}

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]*\.png$`)

// ValidName reports whether name is a plain PNG file name without any path
// components.
func ValidName(name string) bool {
	return validName.MatchString(name) && path.Base(name) == name && !strings.Contains(name, "..")
}

// timestampName builds "enhanced_YYYYMMDD_HHMMSS.png", adding "_N" for the
// n-th collision within the same second.
func timestampName(t time.Time, n int) string {
	base := "enhanced_" + t.Format("20060102_150405")
	if n > 0 {
		base += fmt.Sprintf("_%d", n)
	}
	return base + ".png"
}
