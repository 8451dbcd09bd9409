// Package compress turns entry content into ZIP payloads: it computes the
// CRC-32 of the uncompressed bytes, deflates them with a pooled encoder and
// picks the method that is written to the headers.
package compress
