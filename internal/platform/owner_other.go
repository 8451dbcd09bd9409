//go:build !unix

package platform

import "io/fs"

// FileOwner reports no owner on platforms without Unix ownership.
func FileOwner(fs.FileInfo) (uid, gid uint32, ok bool) {
	return 0, 0, false
}
