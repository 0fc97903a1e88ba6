//go:build linux || darwin

package files

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDescribeEntrySymlinkKind verifies a symlink to a directory is
// reported as a symlink, not a directory.
func TestDescribeEntrySymlinkKind(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "real"), 0o755))
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), link))

	info, err := os.Lstat(link)
	require.NoError(t, err)

	entry := describeEntry(link, info, root)
	assert.Equal(t, EntrySymlink, entry.Kind)
	assert.Equal(t, "link", entry.Path)
}

func TestDescribeEntryPermissions(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "script.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o640))

	info, err := os.Lstat(file)
	require.NoError(t, err)

	entry := describeEntry(file, info, root)
	assert.Equal(t, "0640", entry.PermissionsOctal)
	assert.Regexp(t, regexp.MustCompile(`^-rw-r-----$`), entry.Permissions)
	assert.Equal(t, "txt", entry.Extension)
	assert.NotEmpty(t, entry.Owner)
	assert.NotNil(t, entry.Accessed)
}
