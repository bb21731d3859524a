package storage

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode"

	"go-file-guard/pkg/apierror"
)

// PathValidator normalizes caller-supplied paths and confines them to an
// allow-listed set of root directories. Everything the engine mutates must
// resolve through it first.
type PathValidator struct {
	rootsAbs []string
}

func NewPathValidator(roots []string) (*PathValidator, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("at least one allowed root is required")
	}

	rootsAbs := make([]string, 0, len(roots))
	for _, root := range roots {
		trimmed := strings.TrimSpace(root)
		if trimmed == "" {
			return nil, fmt.Errorf("allowed root cannot be empty")
		}

		abs, err := filepath.Abs(trimmed)
		if err != nil {
			return nil, fmt.Errorf("resolve allowed root %q: %w", root, err)
		}
		rootsAbs = append(rootsAbs, filepath.Clean(abs))
	}

	return &PathValidator{rootsAbs: rootsAbs}, nil
}

func (v *PathValidator) Roots() []string {
	return append([]string(nil), v.rootsAbs...)
}

// ResolvePath validates a caller path and returns its cleaned absolute form.
// The path must be absolute, free of control characters and ".." segments,
// and contained within one of the allowed roots.
func (v *PathValidator) ResolvePath(clientPath string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(clientPath), `\`, "/")
	if normalized == "" {
		return "", apierror.New("INVALID_PATH", "path is required", "", http.StatusBadRequest)
	}

	if strings.Contains(normalized, "\x00") || hasControlCharacters(normalized) {
		return "", apierror.New("INVALID_PATH", "path contains invalid characters", clientPath, http.StatusBadRequest)
	}

	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return "", apierror.New("PATH_TRAVERSAL", "path traversal attempt detected", clientPath, http.StatusForbidden)
		}
	}

	if !filepath.IsAbs(normalized) {
		return "", apierror.New("INVALID_PATH", "path must be absolute", clientPath, http.StatusBadRequest)
	}

	resolved := filepath.Clean(normalized)
	if _, err := v.rootFor(resolved); err != nil {
		return "", err
	}

	return resolved, nil
}

// RootFor returns the allowed root containing an already-resolved path.
func (v *PathValidator) RootFor(resolvedPath string) (string, error) {
	return v.rootFor(resolvedPath)
}

func (v *PathValidator) rootFor(candidateAbs string) (string, error) {
	for _, root := range v.rootsAbs {
		if isWithinRoot(root, candidateAbs) {
			return root, nil
		}
	}

	return "", apierror.New("OUTSIDE_ALLOWED_ROOTS", "path is outside the allowed roots", candidateAbs, http.StatusForbidden)
}

func hasControlCharacters(value string) bool {
	for _, char := range value {
		if unicode.IsControl(char) {
			return true
		}
	}

	return false
}

func isWithinRoot(rootAbs string, candidateAbs string) bool {
	if candidateAbs == rootAbs {
		return true
	}

	rootWithSeparator := rootAbs + string(filepath.Separator)
	return strings.HasPrefix(candidateAbs, rootWithSeparator)
}
