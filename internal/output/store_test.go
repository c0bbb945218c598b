package output_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/sammcj/mcp-office/internal/output"
	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*output.Store, string) {
	t.Helper()
	dir := t.TempDir()
	logger := testutils.CreateTestLogger()
	return output.NewStore(dir, filepath.Join(t.TempDir(), "locks"), security.NewPolicy(logger), logger), dir
}

func TestStore_Resolve(t *testing.T) {
	store, base := newStore(t)
	sub := filepath.Join(base, "reports")
	require.NoError(t, os.MkdirAll(sub, 0700))

	tests := []struct {
		name       string
		filename   string
		outputPath string
		want       string
	}{
		{"relative filename", "book.xlsx", "", filepath.Join(base, "book.xlsx")},
		{"absolute filename", filepath.Join(base, "x", "a.docx"), "", filepath.Join(base, "x", "a.docx")},
		{"output file", "book.xlsx", "copy.xlsx", filepath.Join(base, "copy.xlsx")},
		{"existing output dir", "in/book.xlsx", "reports", filepath.Join(sub, "book.xlsx")},
		{"trailing separator", "book.xlsx", "new/", filepath.Join(base, "new", "book.xlsx")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Resolve(tt.filename, tt.outputPath)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := store.Resolve("", "")
	assert.Error(t, err)
}

func TestStore_ResolveHonoursPolicy(t *testing.T) {
	store, base := newStore(t)
	_, err := store.Resolve(filepath.Join(base, ".ssh", "config"), "")
	assert.ErrorIs(t, err, security.ErrAccessDenied)
}

func TestStore_WriteIsAtomicAndCreatesDirs(t *testing.T) {
	store, base := newStore(t)
	path := filepath.Join(base, "deep", "nested", "out.txt")

	require.NoError(t, store.Write(context.Background(), path, []byte("first")))
	require.NoError(t, store.Write(context.Background(), path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should remain")
}

func TestStore_ReadMissingReturnsNil(t *testing.T) {
	store, base := newStore(t)
	data, err := store.Read(filepath.Join(base, "absent"))
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestStore_ConcurrentUpdatesAreSerialised(t *testing.T) {
	store, base := newStore(t)
	path := filepath.Join(base, "counter.txt")

	const workers = 40
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(context.Background(), path, func(existing []byte) ([]byte, error) {
				n := 0
				if existing != nil {
					n, _ = strconv.Atoi(string(existing))
				}
				return []byte(strconv.Itoa(n + 1)), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(workers), string(data))
}

func TestStore_UpdateReportsExistence(t *testing.T) {
	store, base := newStore(t)
	path := filepath.Join(base, "doc.txt")

	existed, err := store.Update(context.Background(), path, func(existing []byte) ([]byte, error) {
		assert.Nil(t, existing)
		return []byte("a"), nil
	})
	require.NoError(t, err)
	assert.False(t, existed)

	existed, err = store.Update(context.Background(), path, func(existing []byte) ([]byte, error) {
		return append(existing, 'b'), nil
	})
	require.NoError(t, err)
	assert.True(t, existed)

	data, _ := os.ReadFile(path)
	assert.Equal(t, "ab", string(data))
}

func TestStore_EditWritesToOutputPath(t *testing.T) {
	store, base := newStore(t)
	ctx := context.Background()

	src, err := store.Create(ctx, "in.txt", "", []byte("draft"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "in.txt"), src)

	path, existed, err := store.Edit(ctx, "in.txt", "out/", func(existing []byte) ([]byte, error) {
		return append(existing, "+final"...), nil
	})
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, filepath.Join(base, "out", "in.txt"), path)

	data, _ := os.ReadFile(path)
	assert.Equal(t, "draft+final", string(data))
	original, _ := os.ReadFile(src)
	assert.Equal(t, "draft", string(original), "source is left untouched")
}

func TestStore_EditMissingSourceStartsFresh(t *testing.T) {
	store, _ := newStore(t)

	path, existed, err := store.Edit(context.Background(), "new.txt", "", func(existing []byte) ([]byte, error) {
		assert.Nil(t, existing)
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	assert.False(t, existed)
	data, _ := os.ReadFile(path)
	assert.Equal(t, "fresh", string(data))
}
