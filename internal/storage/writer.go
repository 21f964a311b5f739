// Package storage writes rendered pages into the output tree.
package storage

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// PageWriter maps permalinks to files under an output root and writes
// page content atomically (temp file plus rename), so a crashed build
// never leaves a half-written page.
type PageWriter struct {
	root string
}

// NewPageWriter creates the output root if needed.
func NewPageWriter(root string) (*PageWriter, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", root, err)
	}
	return &PageWriter{root: root}, nil
}

// PathFor maps a permalink to its relative output file: permalinks without
// a file extension become directory indexes ("/about/" -> "about/index.html").
func PathFor(permalink string) (string, error) {
	cleaned := path.Clean("/" + permalink)
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("permalink escapes output root: %q", permalink)
	}
	rel := strings.TrimPrefix(cleaned, "/")
	if rel == "" {
		return "index.html", nil
	}
	if path.Ext(rel) != "" {
		return filepath.FromSlash(rel), nil
	}
	return filepath.FromSlash(rel + "/index.html"), nil
}

// Write stores one rendered page and returns its absolute output path.
func (w *PageWriter) Write(permalink string, content []byte) (string, error) {
	rel, err := PathFor(permalink)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(w.root, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return "", fmt.Errorf("create page directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".page-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write page %s: %w", permalink, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("stage page %s: %w", permalink, err)
	}
	return dest, nil
}
