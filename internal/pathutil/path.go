// Package pathutil validates and manipulates slash-separated archive paths.
package pathutil

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MaxNameLen is the longest name a ZIP header can carry.
const MaxNameLen = 1<<16 - 1

// Path policy violations. Callers wrap them with their own sentinel.
var (
	ErrEmpty     = errors.New("empty path")
	ErrAbsolute  = errors.New("absolute path")
	ErrBackslash = errors.New("backslash separator")
	ErrDrive     = errors.New("drive letter")
	ErrNUL       = errors.New("NUL byte")
	ErrEncoding  = errors.New("invalid UTF-8")
	ErrSegment   = errors.New("empty, \".\" or \"..\" segment")
	ErrTooLong   = errors.New("name longer than 65535 bytes")
)

// Clean validates an archive path and returns it in canonical form.
//
// A path is a non-empty sequence of slash-separated segments, none of which
// may be empty, "." or "..". Absolute paths, drive letters, backslashes, NUL
// bytes and invalid UTF-8 are rejected. When dir is true a single trailing
// slash is accepted and stripped, and the limit on the name length accounts
// for the slash the serializer appends.
func Clean(p string, dir bool) (string, error) {
	if dir {
		p = strings.TrimSuffix(p, "/")
	}
	if p == "" {
		return "", ErrEmpty
	}
	if strings.HasPrefix(p, "/") {
		return "", ErrAbsolute
	}
	if strings.ContainsRune(p, '\\') {
		return "", ErrBackslash
	}
	if hasDrive(p) {
		return "", ErrDrive
	}
	if strings.IndexByte(p, 0) >= 0 {
		return "", ErrNUL
	}
	if !utf8.ValidString(p) {
		return "", ErrEncoding
	}
	for seg := range strings.SplitSeq(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", ErrSegment
		}
	}

	limit := MaxNameLen
	if dir {
		limit--
	}
	if len(p) > limit {
		return "", ErrTooLong
	}
	return p, nil
}

// Join prefixes rel with the directory prefix. An empty prefix returns rel.
func Join(prefix, rel string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return rel
	}
	if rel == "" {
		return prefix
	}
	return prefix + "/" + rel
}

// hasDrive reports whether p starts with a drive such as "C:" or "c:/".
// A colon elsewhere, as in "a:notes.txt", is part of the name.
func hasDrive(p string) bool {
	if len(p) < 2 || p[1] != ':' || (len(p) > 2 && p[2] != '/') {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
