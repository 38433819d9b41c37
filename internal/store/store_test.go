package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func TestTimestampName(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "enhanced_20240309_140507.png"},
		{1, "enhanced_20240309_140507_1.png"},
		{12, "enhanced_20240309_140507_12.png"},
	}

	for _, tt := range tests {
		if got := timestampName(fixedTime, tt.n); got != tt.want {
			t.Errorf("timestampName(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestValidName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"enhanced_20240309_140507.png", true},
		{"photo-1.png", true},
		{"", false},
		{".png", false},
		{"../secret.png", false},
		{"dir/file.png", false},
		{"file.jpg", false},
		{"a..b.png", false},
	}

	for _, tt := range tests {
		if got := ValidName(tt.name); got != tt.want {
			t.Errorf("ValidName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOpen_InvalidFormat(t *testing.T) {
	_, err := Open("zip", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid store format")
}

func TestFolder_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	f, err := NewFolder(dir)
	require.NoError(t, err)
	f.now = func() time.Time { return fixedTime }

	ctx := context.Background()
	first, err := f.Save(ctx, []byte("one"))
	require.NoError(t, err)
	second, err := f.Save(ctx, []byte("two"))
	require.NoError(t, err)

	assert.Equal(t, "enhanced_20240309_140507.png", first)
	assert.Equal(t, "enhanced_20240309_140507_1.png", second)

	data, err := f.Load(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	onDisk, err := os.ReadFile(filepath.Join(dir, first))
	require.NoError(t, err)
	assert.Equal(t, "one", string(onDisk))
}

func TestFolder_SaveAsReplaces(t *testing.T) {
	f, err := NewFolder(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, f.SaveAs(ctx, "photo.png", []byte("old")))
	require.NoError(t, f.SaveAs(ctx, "photo.png", []byte("new")))

	data, err := f.Load(ctx, "photo.png")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	assert.Error(t, f.SaveAs(ctx, "../escape.png", []byte("x")))
}

func TestFolder_LoadMissing(t *testing.T) {
	f, err := NewFolder(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = f.Load(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.Load(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFolder_CancelledContext(t *testing.T) {
	f, err := NewFolder(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.Save(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLite_SaveLoad(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "images.db")
	s, err := NewSQLite(dbPath, Metadata{Name: "test"})
	require.NoError(t, err)
	defer s.Close()
	s.now = func() time.Time { return fixedTime }

	ctx := context.Background()
	payload := []byte("fake png data for testing")

	first, err := s.Save(ctx, payload)
	require.NoError(t, err)
	second, err := s.Save(ctx, payload)
	require.NoError(t, err)

	assert.Equal(t, "enhanced_20240309_140507.png", first)
	assert.Equal(t, "enhanced_20240309_140507_1.png", second)

	data, err := s.Load(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSQLite_LoadMissing(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "images.db"), Metadata{})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(context.Background(), "nope.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_BatchFlushOnClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "images.db")
	s, err := NewSQLite(dbPath, Metadata{Name: "batch"})
	require.NoError(t, err)

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		require.NoError(t, s.Add(name, []byte(name)))
	}
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(dbPath, Metadata{Name: "batch"})
	require.NoError(t, err)
	defer reopened.Close()

	ctx := context.Background()
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data, err := reopened.Load(ctx, "b.png")
	require.NoError(t, err)
	assert.Equal(t, "b.png", string(data))
}

func TestSQLite_Metadata(t *testing.T) {
	want := Metadata{Name: "histeq", Description: "Contrast-enhanced images", Version: "1.0"}
	s, err := NewSQLite(filepath.Join(t.TempDir(), "images.db"), want)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Metadata()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSQLite_EmptyPath(t *testing.T) {
	_, err := NewSQLite("", Metadata{})
	assert.Error(t, err)
}
