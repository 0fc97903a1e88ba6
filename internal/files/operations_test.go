package files

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverhost/panel/internal/infrastructure/logging"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(DefaultConfig(t.TempDir()), logging.NewNop())
	require.NoError(t, err)
	return svc
}

func TestCreateFileAndDirectory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, "u1001", "", "notes.txt", EntryFile, "hello")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", entry.Name)
	assert.Equal(t, "notes.txt", entry.Path)
	assert.Equal(t, EntryFile, entry.Kind)
	assert.Equal(t, int64(5), entry.Size)

	entry, err = svc.Create(ctx, "u1001", "public_html", "assets", EntryDirectory, "")
	require.NoError(t, err)
	assert.Equal(t, EntryDirectory, entry.Kind)
	assert.Equal(t, "public_html/assets", entry.Path)

	// Existing target is a conflict, not an overwrite.
	_, err = svc.Create(ctx, "u1001", "", "notes.txt", EntryFile, "other")
	assert.Equal(t, ErrAlreadyExists, KindOf(err))
}

func TestCreateDeniedExtension(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"hack.exe", "run.sh", "evil.PHP.Bat", "x.Js"} {
		_, err := svc.Create(ctx, "u1001", "", name, EntryFile, "")
		require.Error(t, err, "name %q", name)
		assert.Equal(t, ErrTypeNotAllowed, KindOf(err), "name %q", name)
	}
}

func TestListOrderingAndHidden(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1001", "", "zeta", EntryDirectory, "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1001", "", "alpha", EntryDirectory, "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1001", "", "gamma.txt", EntryFile, "gg")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1001", "", "beta.txt", EntryFile, "bbb")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1001", "", ".htpasswd", EntryFile, "secret")
	require.NoError(t, err)

	listing, err := svc.List(ctx, "u1001", "", false)
	require.NoError(t, err)

	names := make([]string, 0, len(listing.Items))
	for _, it := range listing.Items {
		names = append(names, it.Name)
	}
	// Directories first, then files, each group ascending by name.
	assert.Equal(t, []string{"alpha", "zeta", "beta.txt", "gamma.txt"}, names)
	assert.Equal(t, 4, listing.TotalItems)
	assert.Equal(t, int64(5), listing.TotalSize)
	assert.Nil(t, listing.Parent)

	withHidden, err := svc.List(ctx, "u1001", "", true)
	require.NoError(t, err)
	assert.Equal(t, 5, withHidden.TotalItems)
	assert.Equal(t, ".htpasswd", withHidden.Items[2].Name)
	assert.True(t, withHidden.Items[2].Hidden)
}

func TestListSubdirectoryParent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1001", "public_html", "css", EntryDirectory, "")
	require.NoError(t, err)

	listing, err := svc.List(ctx, "u1001", "public_html/css", false)
	require.NoError(t, err)
	require.NotNil(t, listing.Parent)
	assert.Equal(t, "public_html", *listing.Parent)
	assert.Equal(t, "public_html/css", listing.Path)
}

func TestListErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, "u1001", "missing", false)
	assert.Equal(t, ErrNotFound, KindOf(err))

	_, err = svc.Create(ctx, "u1001", "", "file.txt", EntryFile, "x")
	require.NoError(t, err)
	_, err = svc.List(ctx, "u1001", "file.txt", false)
	assert.Equal(t, ErrValidation, KindOf(err))

	_, err = svc.List(ctx, "u1001", "../other", false)
	assert.Equal(t, ErrPermissionDenied, KindOf(err))
}

func TestReadTextRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	const text = "héllo wörld\nsecond line\n"
	_, err := svc.Create(ctx, "u1001", "", "notes.txt", EntryFile, text)
	require.NoError(t, err)

	content, err := svc.Read(ctx, "u1001", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, content.Encoding)
	assert.Equal(t, text, content.Content)
	assert.Equal(t, int64(len(text)), content.Size)
}

func TestReadBinaryRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	raw := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x01}
	_, err := svc.Write(ctx, "u1001", "img.png",
		base64.StdEncoding.EncodeToString(raw), EncodingBase64, true)
	require.NoError(t, err)

	content, err := svc.Read(ctx, "u1001", "img.png")
	require.NoError(t, err)
	assert.Equal(t, EncodingBase64, content.Encoding)

	decoded, err := base64.StdEncoding.DecodeString(content.Content)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestReadErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Read(ctx, "u1001", "missing.txt")
	assert.Equal(t, ErrNotFound, KindOf(err))

	_, err = svc.Create(ctx, "u1001", "", "dir", EntryDirectory, "")
	require.NoError(t, err)
	_, err = svc.Read(ctx, "u1001", "dir")
	assert.Equal(t, ErrValidation, KindOf(err))
}

// TestWriteSizeLimitNoPartialFile verifies an oversized payload is
// rejected before any byte reaches disk.
func TestWriteSizeLimitNoPartialFile(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.MaxUploadBytes = 8
	svc, err := NewService(cfg, logging.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Write(ctx, "u1001", "big.txt", "way more than eight bytes", "", true)
	require.Error(t, err)
	assert.Equal(t, ErrTooLarge, KindOf(err))

	_, err = svc.Read(ctx, "u1001", "big.txt")
	assert.Equal(t, ErrNotFound, KindOf(err))

	// An existing file survives an oversized rewrite untouched.
	_, err = svc.Write(ctx, "u1001", "keep.txt", "tiny", "", true)
	require.NoError(t, err)
	_, err = svc.Write(ctx, "u1001", "keep.txt", "this payload is too large", "", false)
	assert.Equal(t, ErrTooLarge, KindOf(err))
	content, err := svc.Read(ctx, "u1001", "keep.txt")
	require.NoError(t, err)
	assert.Equal(t, "tiny", content.Content)
}

func TestWriteCreateIfMissing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Write(ctx, "u1001", "fresh.txt", "data", "", false)
	assert.Equal(t, ErrNotFound, KindOf(err))

	entry, err := svc.Write(ctx, "u1001", "fresh.txt", "data", "", true)
	require.NoError(t, err)
	assert.Equal(t, int64(4), entry.Size)

	// New names go through the denylist.
	_, err = svc.Write(ctx, "u1001", "backdoor.exe", "data", "", true)
	assert.Equal(t, ErrTypeNotAllowed, KindOf(err))
}

func TestDeleteRootProtection(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, rel := range []string{"", "/", "  "} {
		err := svc.Delete(ctx, "u1001", rel, true)
		require.Error(t, err, "path %q", rel)
		assert.Equal(t, ErrValidation, KindOf(err), "path %q", rel)
	}

	// The root directory itself still exists.
	_, err := svc.List(ctx, "u1001", "", false)
	assert.NoError(t, err)
}

func TestDeleteDirectory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1001", "logs", "app.log", EntryFile, "line")
	require.NoError(t, err)

	err = svc.Delete(ctx, "u1001", "logs", false)
	require.Error(t, err)
	assert.Equal(t, ErrValidation, KindOf(err))

	require.NoError(t, svc.Delete(ctx, "u1001", "logs", true))
	_, err = svc.List(ctx, "u1001", "logs", false)
	assert.Equal(t, ErrNotFound, KindOf(err))

	assert.Equal(t, ErrNotFound, KindOf(svc.Delete(ctx, "u1001", "logs", false)))
}

func TestRename(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1001", "docs", "draft.txt", EntryFile, "v1")
	require.NoError(t, err)

	entry, err := svc.Rename(ctx, "u1001", "docs/draft.txt", "final.txt")
	require.NoError(t, err)
	assert.Equal(t, "docs/final.txt", entry.Path)

	_, err = svc.Read(ctx, "u1001", "docs/draft.txt")
	assert.Equal(t, ErrNotFound, KindOf(err))

	_, err = svc.Rename(ctx, "u1001", "docs/final.txt", "payload.sh")
	assert.Equal(t, ErrTypeNotAllowed, KindOf(err))

	_, err = svc.Create(ctx, "u1001", "docs", "other.txt", EntryFile, "")
	require.NoError(t, err)
	_, err = svc.Rename(ctx, "u1001", "docs/other.txt", "final.txt")
	assert.Equal(t, ErrAlreadyExists, KindOf(err))
}

func TestCopyFileAndTree(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1001", "site/css", "main.css", EntryFile, "body{}")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1001", "site", "index.html", EntryFile, "<html/>")
	require.NoError(t, err)

	entry, err := svc.Copy(ctx, "u1001", "site", "backup", false)
	require.NoError(t, err)
	assert.Equal(t, EntryDirectory, entry.Kind)

	content, err := svc.Read(ctx, "u1001", "backup/css/main.css")
	require.NoError(t, err)
	assert.Equal(t, "body{}", content.Content)

	// The source is untouched.
	_, err = svc.Read(ctx, "u1001", "site/index.html")
	assert.NoError(t, err)

	_, err = svc.Copy(ctx, "u1001", "site", "backup", false)
	assert.Equal(t, ErrAlreadyExists, KindOf(err))

	_, err = svc.Copy(ctx, "u1001", "site", "backup", true)
	assert.NoError(t, err)
}

func TestMove(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1001", "inbox", "report.pdf", EntryFile, "%PDF")
	require.NoError(t, err)

	entry, err := svc.Move(ctx, "u1001", "inbox/report.pdf", "archive/2026/report.pdf", false)
	require.NoError(t, err)
	assert.Equal(t, "archive/2026/report.pdf", entry.Path)

	_, err = svc.Read(ctx, "u1001", "inbox/report.pdf")
	assert.Equal(t, ErrNotFound, KindOf(err))

	_, err = svc.Move(ctx, "u1001", "missing.txt", "elsewhere.txt", false)
	assert.Equal(t, ErrNotFound, KindOf(err))
}

// TestTransferDestinationGuards verifies the tenant root can never be
// a transfer destination, and a destination at or inside the source is
// rejected, even with overwrite set. Both cases would otherwise delete
// data the transfer still needs.
func TestTransferDestinationGuards(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1001", "site", "index.html", EntryFile, "<html/>")
	require.NoError(t, err)

	_, err = svc.Copy(ctx, "u1001", "site", "", true)
	require.Error(t, err)
	assert.Equal(t, ErrValidation, KindOf(err))
	_, err = svc.Move(ctx, "u1001", "site", "/", true)
	require.Error(t, err)
	assert.Equal(t, ErrValidation, KindOf(err))

	// The tenant tree survived untouched.
	content, err := svc.Read(ctx, "u1001", "site/index.html")
	require.NoError(t, err)
	assert.Equal(t, "<html/>", content.Content)

	_, err = svc.Copy(ctx, "u1001", "site", "site", true)
	assert.Equal(t, ErrValidation, KindOf(err))
	_, err = svc.Copy(ctx, "u1001", "site", "site/backup", false)
	assert.Equal(t, ErrValidation, KindOf(err))
	_, err = svc.Move(ctx, "u1001", "site", "site/sub", true)
	assert.Equal(t, ErrValidation, KindOf(err))

	_, err = svc.Read(ctx, "u1001", "site/index.html")
	assert.NoError(t, err)
}

// TestReadDotfileAsText verifies a leading dot is a hidden marker, not
// an extension, so unlisted dotfiles still read as UTF-8 text.
func TestReadDotfileAsText(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1001", "", ".bashrc", EntryFile, "export PATH=$PATH:~/bin")
	require.NoError(t, err)

	content, err := svc.Read(ctx, "u1001", ".bashrc")
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, content.Encoding)
	assert.Equal(t, "export PATH=$PATH:~/bin", content.Content)

	entry, err := svc.Write(ctx, "u1001", ".npmrc", "registry=https://registry.npmjs.org/", "", true)
	require.NoError(t, err)
	assert.Empty(t, entry.Extension)
}

// TestTenantIsolation verifies operations in one tenant never observe
// another tenant's entries.
func TestTenantIsolation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", "", "secret.txt", EntryFile, "mine")
	require.NoError(t, err)

	listing, err := svc.List(ctx, "bob", "", true)
	require.NoError(t, err)
	assert.Empty(t, listing.Items)

	_, err = svc.Read(ctx, "bob", "secret.txt")
	assert.Equal(t, ErrNotFound, KindOf(err))
}

func TestDirectorySize(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1001", "data", "a.txt", EntryFile, "12345")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u1001", "data/sub", "b.txt", EntryFile, "123")
	require.NoError(t, err)

	size, count, err := svc.DirectorySize(ctx, "u1001", "data")
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)
	assert.Equal(t, 2, count)
}

func TestEntryMetadata(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, "u1001", "", "page.html", EntryFile, "<!doctype html><html></html>")
	require.NoError(t, err)

	assert.Equal(t, "html", entry.Extension)
	assert.Len(t, entry.PermissionsOctal, 4)
	assert.NotEmpty(t, entry.Permissions)
	assert.False(t, entry.Modified.IsZero())

	root, err := svc.Sandbox().CanonicalRoot("u1001")
	require.NoError(t, err)
	info, err := os.Lstat(filepath.Join(root, "page.html"))
	require.NoError(t, err)
	assert.Equal(t, info.Size(), entry.Size)
}
