package model

import (
	"fmt"
	"strings"

	"go-file-guard/internal/util"
)

// PreviewFile is one path an operation would touch.
type PreviewFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Preview is the computed, never-persisted dry-run effect of a request. It is
// produced fresh for every request and never cached.
type Preview struct {
	Kind       OperationKind `json:"kind"`
	SourcePath string        `json:"source_path,omitempty"`
	DestPath   string        `json:"dest_path,omitempty"`
	Files      []PreviewFile `json:"files"`
	FileCount  int           `json:"file_count"`
	TotalBytes int64         `json:"total_bytes"`
	Warnings   []string      `json:"warnings,omitempty"`
	// Fatal marks a preview whose warnings make the operation pointless or
	// unsafe (e.g. zero readable files). The gate denies fatal previews.
	Fatal bool `json:"fatal,omitempty"`
}

const previewMaxListedFiles = 10

// Format renders a human-readable summary for interactive confirmation.
func (p Preview) Format() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Operation: %s\n", strings.ToUpper(string(p.Kind)))
	if p.SourcePath != "" {
		fmt.Fprintf(&b, "Source: %s (%d files, %s)\n", p.SourcePath, p.FileCount, util.FormatBytes(p.TotalBytes))
	}
	if p.DestPath != "" {
		fmt.Fprintf(&b, "Destination: %s\n", p.DestPath)
	}

	if len(p.Files) > 0 {
		b.WriteString("Files affected:\n")
		for i, file := range p.Files {
			if i == previewMaxListedFiles {
				fmt.Fprintf(&b, "  ... (%d more files)\n", len(p.Files)-previewMaxListedFiles)
				break
			}
			fmt.Fprintf(&b, "  - %s (%s)\n", file.Path, util.FormatBytes(file.Size))
		}
	}

	for _, warning := range p.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", warning)
	}

	return strings.TrimRight(b.String(), "\n")
}
