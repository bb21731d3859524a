package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ChecksumFile computes the SHA-256 digest of a file's content, streaming so
// large files never load into memory.
func ChecksumFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %q for checksum: %w", path, err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("checksum %q: %w", path, err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// ChecksumBytes computes the SHA-256 digest of a byte slice.
func ChecksumBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
