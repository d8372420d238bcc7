package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jpegData = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	pngData  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	return NewLocal(t.TempDir(), nil, discardLogger())
}

func TestLocal_SaveJPEG(t *testing.T) {
	local := newTestLocal(t)

	img, err := local.Save(context.Background(), jpegData, Products)
	require.NoError(t, err)

	assert.Equal(t, BackendLocal, img.Backend)
	assert.Regexp(t, regexp.MustCompile(`^/static/images/products/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.jpg$`), img.URL)
	assert.Equal(t, "/static/images/products/"+img.ID+".jpg", img.URL)

	onDisk, err := os.ReadFile(local.Path(Products, img.ID+".jpg"))
	require.NoError(t, err)
	assert.Equal(t, jpegData, onDisk)
	assert.Len(t, onDisk, 10)
}

func TestLocal_SaveUsesSniffedExtension(t *testing.T) {
	local := newTestLocal(t)

	img, err := local.Save(context.Background(), pngData, Users)
	require.NoError(t, err)
	assert.Equal(t, "/static/images/users/"+img.ID+".png", img.URL)

	img, err = local.Save(context.Background(), []byte("definitely not an image"), Uploads)
	require.NoError(t, err)
	assert.Equal(t, "/static/images/uploads/"+img.ID+".jpg", img.URL)
}

func TestLocal_SaveGeneratesUniqueIDs(t *testing.T) {
	local := newTestLocal(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		img, err := local.Save(context.Background(), jpegData, Uploads)
		require.NoError(t, err)
		assert.False(t, seen[img.ID], "duplicate id %s", img.ID)
		seen[img.ID] = true
	}
}

func TestLocal_SaveUnwritableRoot(t *testing.T) {
	// a regular file where the root directory should be
	root := filepath.Join(t.TempDir(), "images")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))

	local := NewLocal(root, nil, discardLogger())
	_, err := local.Save(context.Background(), jpegData, Products)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocalIO)
}

func TestLocal_SaveCancelledContext(t *testing.T) {
	local := newTestLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := local.Save(ctx, jpegData, Products)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocal_Resolve(t *testing.T) {
	local := newTestLocal(t)
	ctx := context.Background()

	img, err := local.Save(ctx, jpegData, Categories)
	require.NoError(t, err)

	u, err := local.Resolve(ctx, img.ID, Categories)
	require.NoError(t, err)
	assert.Equal(t, img.URL, u)

	_, err = local.Resolve(ctx, img.ID, Products)
	assert.ErrorIs(t, err, ErrNotFound, "lookups never cross namespaces")

	_, err = local.Resolve(ctx, "missing", Categories)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_ResolveMissingDirectory(t *testing.T) {
	local := newTestLocal(t)

	_, err := local.Resolve(context.Background(), "abc", Placeholders)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocal_ResolveMatchingRules(t *testing.T) {
	local := newTestLocal(t)
	dir := filepath.Join(local.Root(), string(Uploads))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range []string{"abc", "abcdef.png", "xyz.tar.gz"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.d"), 0o755))
	ctx := context.Background()

	u, err := local.Resolve(ctx, "abc", Uploads)
	require.NoError(t, err)
	assert.Equal(t, "/static/images/uploads/abc", u, "exact name without extension")

	u, err = local.Resolve(ctx, "xyz", Uploads)
	require.NoError(t, err)
	assert.Equal(t, "/static/images/uploads/xyz.tar.gz", u, "stem is cut at the first dot")

	_, err = local.Resolve(ctx, "abcd", Uploads)
	assert.ErrorIs(t, err, ErrNotFound, "a longer stem is not a match")

	_, err = local.Resolve(ctx, "sub", Uploads)
	assert.ErrorIs(t, err, ErrNotFound, "directories are skipped")
}

func TestLocal_RejectsTraversal(t *testing.T) {
	local := newTestLocal(t)
	require.NoError(t, os.WriteFile(filepath.Join(local.Root(), "secret"), []byte("x"), 0o644))
	ctx := context.Background()

	for _, id := range []string{"", ".", "..", "../secret", `..\secret`, "a/b"} {
		_, err := local.Resolve(ctx, id, Products)
		assert.ErrorIs(t, err, ErrNotFound, "id %q", id)

		ok, err := local.Delete(ctx, id, Products)
		assert.NoError(t, err)
		assert.False(t, ok)
	}
	assert.FileExists(t, filepath.Join(local.Root(), "secret"))
}

func TestLocal_DeleteIsIdempotent(t *testing.T) {
	local := newTestLocal(t)
	ctx := context.Background()

	img, err := local.Save(ctx, jpegData, Users)
	require.NoError(t, err)

	ok, err := local.Delete(ctx, img.ID, Users)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoFileExists(t, local.Path(Users, img.ID+".jpg"))

	ok, err = local.Delete(ctx, img.ID, Users)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = local.Delete(ctx, "never-stored", Users)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocal_WithIndex(t *testing.T) {
	index, err := OpenIndex(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	local := NewLocal(t.TempDir(), index, discardLogger())
	ctx := context.Background()

	img, err := local.Save(ctx, pngData, Products)
	require.NoError(t, err)

	filename, ok, err := index.Get(Products, img.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, img.ID+".png", filename)

	u, err := local.Resolve(ctx, img.ID, Products)
	require.NoError(t, err)
	assert.Equal(t, img.URL, u)

	ok, err = local.Delete(ctx, img.ID, Products)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = index.Get(Products, img.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocal_StaleIndexEntryFallsBackToScan(t *testing.T) {
	index, err := OpenIndex(filepath.Join(t.TempDir(), "index"))
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	local := NewLocal(t.TempDir(), index, discardLogger())
	ctx := context.Background()

	img, err := local.Save(ctx, jpegData, Uploads)
	require.NoError(t, err)

	// file removed behind the index, then re-created under another extension
	require.NoError(t, os.Remove(local.Path(Uploads, img.ID+".jpg")))
	require.NoError(t, os.WriteFile(local.Path(Uploads, img.ID+".png"), pngData, 0o644))

	u, err := local.Resolve(ctx, img.ID, Uploads)
	require.NoError(t, err)
	assert.Equal(t, "/static/images/uploads/"+img.ID+".png", u)

	_, ok, err := index.Get(Uploads, img.ID)
	require.NoError(t, err)
	assert.False(t, ok, "stale entry is evicted")
}

func TestLocal_SaveRejectsUnknownNamespace(t *testing.T) {
	local := newTestLocal(t)

	for _, ns := range []Namespace{"../escaped", RootNamespace} {
		_, err := local.Save(context.Background(), jpegData, ns)
		assert.ErrorIs(t, err, ErrInvalidNamespace)
	}
	entries, err := os.ReadDir(local.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
