package util

import "fmt"

// FormatBytes renders a byte count as a human-readable size.
func FormatBytes(size int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)

	switch {
	case size < kb:
		return fmt.Sprintf("%d B", size)
	case size < mb:
		return fmt.Sprintf("%.1f KB", float64(size)/kb)
	case size < gb:
		return fmt.Sprintf("%.1f MB", float64(size)/mb)
	default:
		return fmt.Sprintf("%.1f GB", float64(size)/gb)
	}
}
