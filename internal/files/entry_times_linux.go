//go:build linux

package files

import (
	"os"
	"syscall"
	"time"
)

// entryTimes returns access time from stat. Linux does not expose a
// birth time through syscall.Stat_t, so creation time is omitted.
func entryTimes(info os.FileInfo) (accessed, created *time.Time) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, nil
	}
	at := time.Unix(stat.Atim.Sec, stat.Atim.Nsec)
	return &at, nil
}
