//go:build unix

package platform

import (
	"io/fs"
	"syscall"
)

// FileOwner extracts UID and GID from file info on Unix systems.
// ok is false when the information is unavailable.
func FileOwner(info fs.FileInfo) (uid, gid uint32, ok bool) {
	if stat, isStat := info.Sys().(*syscall.Stat_t); isStat {
		return stat.Uid, stat.Gid, true
	}
	return 0, 0, false
}
