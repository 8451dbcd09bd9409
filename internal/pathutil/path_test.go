package pathutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		dir     bool
		want    string
		wantErr error
	}{
		{"simple", "a.txt", false, "a.txt", nil},
		{"nested", "a/b/c.txt", false, "a/b/c.txt", nil},
		{"unicode", "données/été.txt", false, "données/été.txt", nil},
		{"dot in name", "a/.hidden", false, "a/.hidden", nil},
		{"dir trailing slash", "a/b/", true, "a/b", nil},
		{"dir without slash", "a/b", true, "a/b", nil},
		{"empty", "", false, "", ErrEmpty},
		{"dir only slash", "/", true, "", ErrEmpty},
		{"file trailing slash", "a/b/", false, "", ErrSegment},
		{"dir double trailing slash", "a//", true, "", ErrSegment},
		{"absolute", "/etc/passwd", false, "", ErrAbsolute},
		{"backslash", `a\b.txt`, false, "", ErrBackslash},
		{"drive letter", "C:/x.txt", false, "", ErrDrive},
		{"lower drive letter", "c:/x.txt", false, "", ErrDrive},
		{"bare drive", "C:", false, "", ErrDrive},
		{"bare drive dir", "d:/", true, "", ErrDrive},
		{"letter colon name", "a:notes.txt", false, "a:notes.txt", nil},
		{"colon later is fine", "ab:c", false, "ab:c", nil},
		{"nul", "a\x00b", false, "", ErrNUL},
		{"invalid utf8", "a\xffb", false, "", ErrEncoding},
		{"dotdot", "../x", false, "", ErrSegment},
		{"dotdot middle", "a/../x", false, "", ErrSegment},
		{"dot segment", "a/./x", false, "", ErrSegment},
		{"empty segment", "a//x", false, "", ErrSegment},
		{"dot only", ".", false, "", ErrSegment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Clean(tt.input, tt.dir)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClean_Length(t *testing.T) {
	t.Parallel()

	longest := strings.Repeat("a", MaxNameLen)
	_, err := Clean(longest, false)
	require.NoError(t, err)

	_, err = Clean(longest+"a", false)
	require.ErrorIs(t, err, ErrTooLong)

	// Directories lose one byte to the trailing slash.
	_, err = Clean(longest, true)
	require.ErrorIs(t, err, ErrTooLong)
	_, err = Clean(longest[1:]+"/", true)
	require.NoError(t, err)
}

func TestJoin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "x/y", Join("", "x/y"))
	assert.Equal(t, "p/x/y", Join("p", "x/y"))
	assert.Equal(t, "p/q/x", Join("/p/q/", "x"))
	assert.Equal(t, "p", Join("p/", ""))
}
