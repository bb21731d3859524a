package repository

import (
	"io/fs"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileModeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		mode fs.FileMode
	}{
		{"plain file", 0o644},
		{"executable", 0o755},
		{"directory", fs.ModeDir | 0o755},
		{"symlink", fs.ModeSymlink | 0o777},
		{"setuid file", fs.ModeSetuid | 0o755},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := encodeFileMode(tt.mode)
			assert.GreaterOrEqual(t, encoded, int64(0))
			assert.Equal(t, tt.mode, decodeFileMode(encoded))
		})
	}
}

func TestEncodeFileMode_DirectoryExceedsInt32(t *testing.T) {
	// fs.ModeDir is bit 31: a directory mode cannot be bound to an int4
	// column, the value must travel as int64.
	encoded := encodeFileMode(fs.ModeDir | 0o755)
	assert.Greater(t, encoded, int64(math.MaxInt32))
}
