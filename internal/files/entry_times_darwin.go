//go:build darwin

package files

import (
	"os"
	"syscall"
	"time"
)

func entryTimes(info os.FileInfo) (accessed, created *time.Time) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, nil
	}
	at := time.Unix(stat.Atimespec.Sec, stat.Atimespec.Nsec)
	if stat.Birthtimespec.Sec == 0 {
		return &at, nil
	}
	bt := time.Unix(stat.Birthtimespec.Sec, stat.Birthtimespec.Nsec)
	return &at, &bt
}
