package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("matches checksum of same content", func(t *testing.T) {
		path := filepath.Join(dir, "a.txt")
		require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

		sum, err := ChecksumFile(path)
		require.NoError(t, err)
		assert.Equal(t, ChecksumBytes([]byte("hello world")), sum)
	})

	t.Run("differs for different content", func(t *testing.T) {
		first := filepath.Join(dir, "b.txt")
		second := filepath.Join(dir, "c.txt")
		require.NoError(t, os.WriteFile(first, []byte("one"), 0o644))
		require.NoError(t, os.WriteFile(second, []byte("two"), 0o644))

		firstSum, err := ChecksumFile(first)
		require.NoError(t, err)
		secondSum, err := ChecksumFile(second)
		require.NoError(t, err)
		assert.NotEqual(t, firstSum, secondSum)
	})

	t.Run("missing file returns error", func(t *testing.T) {
		_, err := ChecksumFile(filepath.Join(dir, "missing.txt"))
		assert.Error(t, err)
	})
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatBytes(tc.size))
	}
}
