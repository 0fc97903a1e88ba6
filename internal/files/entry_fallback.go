//go:build !linux && !darwin

package files

import (
	"os"
	"time"
)

// Platforms without POSIX stat: no ownership labels, no extra
// timestamps. The permission string degrades to Go's portable mode
// rendering, which on Windows reduces to a writable/read-only
// distinction.
func ownerGroup(info os.FileInfo) (string, string) { return "", "" }

func entryTimes(info os.FileInfo) (accessed, created *time.Time) { return nil, nil }
