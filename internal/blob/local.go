package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalMirror writes payloads under a directory root, mirroring the object
// path layout. It serves as the dev default and the GCS fallback.
type LocalMirror struct {
	root string
}

func NewLocalMirror(root string) (*LocalMirror, error) {
	if root == "" {
		return nil, fmt.Errorf("local mirror root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create mirror root: %w", err)
	}
	return &LocalMirror{root: root}, nil
}

func (m *LocalMirror) Write(_ context.Context, path string, payload []byte) (string, error) {
	full := filepath.Join(m.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create mirror directory: %w", err)
	}
	if err := os.WriteFile(full, payload, 0o644); err != nil {
		return "", fmt.Errorf("write mirror file: %w", err)
	}
	return full, nil
}
