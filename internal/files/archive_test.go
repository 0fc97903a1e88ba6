package files

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCompressExtractRoundTrip verifies a directory tree survives a
// compress and extract cycle, empty directories included.
func TestCompressExtractRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1001", "site", "index.html", EntryFile, "<html/>")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1001", "site/css", "main.css", EntryFile, "body{}")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1001", "site", "empty", EntryDirectory, "")
	require.NoError(t, err)

	archive, err := svc.Compress(ctx, "u1001", []string{"site"}, "site-backup")
	require.NoError(t, err)
	assert.Equal(t, "site-backup.zip", archive.Path)
	assert.Equal(t, "zip", archive.Extension)
	assert.Greater(t, archive.Size, int64(0))

	dest, err := svc.Extract(ctx, "u1001", "site-backup.zip", "restored", false)
	require.NoError(t, err)
	assert.Equal(t, EntryDirectory, dest.Kind)

	content, err := svc.Read(ctx, "u1001", "restored/site/index.html")
	require.NoError(t, err)
	assert.Equal(t, "<html/>", content.Content)

	content, err = svc.Read(ctx, "u1001", "restored/site/css/main.css")
	require.NoError(t, err)
	assert.Equal(t, "body{}", content.Content)

	listing, err := svc.List(ctx, "u1001", "restored/site/empty", true)
	require.NoError(t, err)
	assert.Empty(t, listing.Items)
}

func TestCompressMultipleSources(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1001", "docs", "a.txt", EntryFile, "A")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1001", "docs", "b.txt", EntryFile, "B")
	require.NoError(t, err)

	archive, err := svc.Compress(ctx, "u1001", []string{"docs/a.txt", "docs/b.txt"}, "pair.zip")
	require.NoError(t, err)
	assert.Equal(t, "docs/pair.zip", archive.Path)

	_, err = svc.Extract(ctx, "u1001", "docs/pair.zip", "out", false)
	require.NoError(t, err)

	for name, want := range map[string]string{"out/a.txt": "A", "out/b.txt": "B"} {
		content, rerr := svc.Read(ctx, "u1001", name)
		require.NoError(t, rerr)
		assert.Equal(t, want, content.Content)
	}
}

// TestCompressTenantRoot verifies compressing the whole tenant root
// works and the archive, which lands inside the tree being walked,
// never includes its own partially-written bytes.
func TestCompressTenantRoot(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1001", "", "a.txt", EntryFile, "A")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1001", "docs", "b.txt", EntryFile, "B")
	require.NoError(t, err)

	archive, err := svc.Compress(ctx, "u1001", []string{""}, "full-backup")
	require.NoError(t, err)
	assert.Equal(t, "full-backup.zip", archive.Path)

	_, err = svc.Extract(ctx, "u1001", "full-backup.zip", "restored", false)
	require.NoError(t, err)

	content, err := svc.Read(ctx, "u1001", "restored/u1001/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "A", content.Content)
	content, err = svc.Read(ctx, "u1001", "restored/u1001/docs/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "B", content.Content)

	// The zip did not swallow itself.
	_, err = svc.Read(ctx, "u1001", "restored/u1001/full-backup.zip")
	assert.Equal(t, ErrNotFound, KindOf(err))
}

func TestCompressValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Compress(ctx, "u1001", nil, "empty.zip")
	assert.Equal(t, ErrValidation, KindOf(err))

	_, err = svc.Compress(ctx, "u1001", []string{"missing"}, "x.zip")
	assert.Equal(t, ErrNotFound, KindOf(err))

	_, err = svc.Create(ctx, "u1001", "", "a.txt", EntryFile, "A")
	require.NoError(t, err)
	_, err = svc.Compress(ctx, "u1001", []string{"a.txt"}, "")
	assert.Equal(t, ErrValidation, KindOf(err))

	_, err = svc.Compress(ctx, "u1001", []string{"a.txt"}, "dup.zip")
	require.NoError(t, err)
	_, err = svc.Compress(ctx, "u1001", []string{"a.txt"}, "dup.zip")
	assert.Equal(t, ErrAlreadyExists, KindOf(err))
}

// TestExtractZipSlip verifies hostile entry names never escape the
// destination directory.
func TestExtractZipSlip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	root, err := svc.Sandbox().CanonicalRoot("u1001")
	require.NoError(t, err)

	// Craft an archive with a traversal entry alongside a benign one.
	archivePath := filepath.Join(root, "hostile.zip")
	out, err := os.Create(archivePath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)

	w, err := zw.Create("../../evil.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("pwned"))
	require.NoError(t, err)

	w, err = zw.Create("ok.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("fine"))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	_, err = svc.Extract(ctx, "u1001", "hostile.zip", "out", false)
	require.NoError(t, err)

	content, err := svc.Read(ctx, "u1001", "out/ok.txt")
	require.NoError(t, err)
	assert.Equal(t, "fine", content.Content)

	// The traversal entry was skipped, nothing landed above the
	// destination or outside the sandbox.
	_, err = os.Stat(filepath.Join(root, "evil.txt"))
	assert.True(t, os.IsNotExist(err))
	base := filepath.Dir(root)
	_, err = os.Stat(filepath.Join(base, "evil.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractOverwritePolicy(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1001", "", "a.txt", EntryFile, "original")
	require.NoError(t, err)
	_, err = svc.Compress(ctx, "u1001", []string{"a.txt"}, "snap.zip")
	require.NoError(t, err)

	_, err = svc.Extract(ctx, "u1001", "snap.zip", "out", false)
	require.NoError(t, err)

	// Diverge the extracted copy, then re-extract without overwrite.
	_, err = svc.Write(ctx, "u1001", "out/a.txt", "modified", "", false)
	require.NoError(t, err)
	_, err = svc.Extract(ctx, "u1001", "snap.zip", "out", false)
	require.NoError(t, err)
	content, err := svc.Read(ctx, "u1001", "out/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "modified", content.Content)

	// With overwrite the archived copy wins.
	_, err = svc.Extract(ctx, "u1001", "snap.zip", "out", true)
	require.NoError(t, err)
	content, err = svc.Read(ctx, "u1001", "out/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "original", content.Content)
}

func TestExtractRejectsNonZip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1001", "", "notes.txt", EntryFile, "text")
	require.NoError(t, err)

	_, err = svc.Extract(ctx, "u1001", "notes.txt", "out", false)
	assert.Equal(t, ErrValidation, KindOf(err))

	_, err = svc.Extract(ctx, "u1001", "missing.zip", "out", false)
	assert.Equal(t, ErrNotFound, KindOf(err))
}
