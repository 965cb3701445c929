package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCandidateName(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want string
	}{
		{name: "name.png", n: 0, want: "name.png"},
		{name: "name.png", n: 1, want: "name_1.png"},
		{name: "name.png", n: 12, want: "name_12.png"},
		{name: "archive.tar.png", n: 2, want: "archive.tar_2.png"},
		{name: "noext", n: 3, want: "noext_3"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, CandidateName(tt.name, tt.n))
		})
	}
}

func TestDisk_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates content dir on first use", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "uploads")
		d := NewDisk(dir)

		info, err := d.Create(ctx, "shot.png", strings.NewReader("abc"))
		require.NoError(t, err)
		assert.Equal(t, "shot.png", info.Key)
		assert.Equal(t, int64(3), info.Size)

		b, err := os.ReadFile(filepath.Join(dir, "shot.png"))
		require.NoError(t, err)
		assert.Equal(t, "abc", string(b))
	})

	t.Run("resolves collisions with numeric suffix", func(t *testing.T) {
		d := NewDisk(t.TempDir())

		var keys []string
		for i := 0; i < 3; i++ {
			info, err := d.Create(ctx, "name.png", strings.NewReader("x"))
			require.NoError(t, err)
			keys = append(keys, info.Key)
		}
		assert.Equal(t, []string{"name.png", "name_1.png", "name_2.png"}, keys)
	})

	t.Run("skips names taken outside the store", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "name.png"), []byte("old"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "name_1.png"), []byte("old"), 0o644))

		info, err := NewDisk(dir).Create(ctx, "name.png", strings.NewReader("new"))
		require.NoError(t, err)
		assert.Equal(t, "name_2.png", info.Key)

		b, _ := os.ReadFile(filepath.Join(dir, "name.png"))
		assert.Equal(t, "old", string(b))
	})

	t.Run("rejects names outside the content dir", func(t *testing.T) {
		d := NewDisk(t.TempDir())
		for _, name := range []string{"../evil.png", "a/b.png", "a" + string(filepath.Separator) + "b.png", "..", ""} {
			_, err := d.Create(ctx, name, strings.NewReader("x"))
			assert.ErrorIs(t, err, ErrInvalidName, name)
		}
	})

	t.Run("keeps windows style client paths as one name", func(t *testing.T) {
		if filepath.Separator == '\\' {
			t.Skip("backslash is the separator here")
		}
		dir := t.TempDir()
		info, err := NewDisk(dir).Create(ctx, `C:\x\shot.png`, strings.NewReader("x"))
		require.NoError(t, err)
		assert.Equal(t, `C:\x\shot.png`, info.Key)
		assert.FileExists(t, filepath.Join(dir, `C:\x\shot.png`))
	})

	t.Run("removes partial file on write failure", func(t *testing.T) {
		dir := t.TempDir()
		_, err := NewDisk(dir).Create(ctx, "broken.png", failingReader{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")

		_, statErr := os.Stat(filepath.Join(dir, "broken.png"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("honors cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewDisk(t.TempDir()).Create(cctx, "a.png", strings.NewReader("x"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDisk_Rename(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	d := NewDisk(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_1.png"), []byte("old"), 0o644))

	err := d.Rename(ctx, "a.png", "a_1.png")
	assert.ErrorIs(t, err, fs.ErrExist)
	b, _ := os.ReadFile(filepath.Join(dir, "a_1.png"))
	assert.Equal(t, "old", string(b), "existing file must not be replaced")

	require.NoError(t, d.Rename(ctx, "a.png", "a_2.png"))
	assert.NoFileExists(t, filepath.Join(dir, "a.png"))
	b, _ = os.ReadFile(filepath.Join(dir, "a_2.png"))
	assert.Equal(t, "new", string(b))

	assert.ErrorIs(t, d.Rename(ctx, "a_2.png", "../a.png"), ErrInvalidName)
}

func TestDisk_Remove(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	d := NewDisk(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("x"), 0o644))

	require.NoError(t, d.Remove(ctx, "a.png"))
	assert.NoFileExists(t, filepath.Join(dir, "a.png"))
	assert.NoError(t, d.Remove(ctx, "a.png"), "missing file is not an error")
	assert.ErrorIs(t, d.Remove(ctx, "../a.png"), ErrInvalidName)
}

func TestDisk_CreateConcurrent(t *testing.T) {
	d := NewDisk(t.TempDir())
	const workers = 16

	var wg sync.WaitGroup
	keys := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			info, err := d.Create(context.Background(), "same.png", strings.NewReader("x"))
			if assert.NoError(t, err) {
				keys <- info.Key
			}
		}()
	}
	wg.Wait()
	close(keys)

	seen := map[string]bool{}
	for k := range keys {
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
	assert.Len(t, seen, workers)

	entries, err := os.ReadDir(d.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, workers)
}
