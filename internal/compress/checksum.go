package compress

import "hash/crc32"

// Checksum returns the CRC-32 (IEEE, reflected 0xEDB88320) of b.
func Checksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// UpdateChecksum continues crc over p. A zero crc starts a new sum.
func UpdateChecksum(crc uint32, p []byte) uint32 {
	return crc32.Update(crc, crc32.IEEETable, p)
}
