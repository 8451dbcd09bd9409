// Package platform maps filesystem metadata onto ZIP attribute fields.
package platform

import "io/fs"

// Unix file type bits as stored in the high half of external attributes.
const (
	unixIFREG = 0o100000
	unixIFDIR = 0o040000

	msdosReadOnly = 0x01
	msdosDir      = 0x10
)

// Default permission bits for entries registered without a mode.
const (
	DefaultFileMode fs.FileMode = 0o644
	DefaultDirMode  fs.FileMode = 0o755
)

// ExternalAttrs returns the central directory external attributes for an
// entry with the given permission bits: the Unix mode in the high 16 bits
// and MS-DOS attributes in the low byte.
func ExternalAttrs(mode fs.FileMode, dir bool) uint32 {
	unix := uint32(mode.Perm())
	if mode&fs.ModeSetuid != 0 {
		unix |= 0o4000
	}
	if mode&fs.ModeSetgid != 0 {
		unix |= 0o2000
	}
	if mode&fs.ModeSticky != 0 {
		unix |= 0o1000
	}

	var dos uint32
	if dir {
		unix |= unixIFDIR
		dos = msdosDir
	} else {
		unix |= unixIFREG
	}
	if mode&0o200 == 0 {
		dos |= msdosReadOnly
	}
	return unix<<16 | dos
}
