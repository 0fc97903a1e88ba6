package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// describeEntry converts raw OS metadata into a FileEntry. Pure apart
// from the optional MIME sniff; any metadata read error belongs to the
// caller.
func describeEntry(abs string, info os.FileInfo, canonRoot string) FileEntry {
	mode := info.Mode()

	kind := EntryFile
	switch {
	// Symlink bit before directory bit: a symlink to a directory is
	// still reported as a symlink.
	case mode&os.ModeSymlink != 0:
		kind = EntrySymlink
	case info.IsDir():
		kind = EntryDirectory
	}

	name := info.Name()
	entry := FileEntry{
		Name:             name,
		Path:             relPath(canonRoot, abs),
		Kind:             kind,
		Size:             info.Size(),
		Permissions:      mode.String(),
		PermissionsOctal: fmt.Sprintf("%04o", mode.Perm()),
		Modified:         info.ModTime(),
		Hidden:           strings.HasPrefix(name, "."),
	}

	entry.Owner, entry.Group = ownerGroup(info)
	entry.Accessed, entry.Created = entryTimes(info)

	if kind == EntryFile {
		// Dotfiles like .bashrc have no extension, only a hidden marker.
		if ext := filepath.Ext(name); ext != "" && ext != name {
			entry.Extension = strings.ToLower(strings.TrimPrefix(ext, "."))
		}
		if mt, err := mimetype.DetectFile(abs); err == nil {
			entry.MimeType = mt.String()
		}
	}
	return entry
}

func relPath(canonRoot, abs string) string {
	rel, err := filepath.Rel(canonRoot, abs)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}
