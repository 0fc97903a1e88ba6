//go:build linux || darwin

package files

import (
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// ownerGroup resolves uid/gid to names, falling back to the numeric
// form when the id has no passwd/group entry (common inside
// containers).
func ownerGroup(info os.FileInfo) (string, string) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return "", ""
	}
	uid := strconv.FormatUint(uint64(stat.Uid), 10)
	gid := strconv.FormatUint(uint64(stat.Gid), 10)

	owner := uid
	if u, err := user.LookupId(uid); err == nil {
		owner = u.Username
	}
	group := gid
	if g, err := user.LookupGroupId(gid); err == nil {
		group = g.Name
	}
	return owner, group
}
