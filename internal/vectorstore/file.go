package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sonic "github.com/bytedance/sonic"

	"github.com/carolinespringscc/cricket-agent/internal/domain/document"
)

// FileBackend persists the whole document set as one JSON file. It is the
// zero-dependency tier that makes local runs and single-pod deployments
// survive restarts.
type FileBackend struct {
	mu   sync.Mutex
	path string
	docs map[string]document.Document
}

type fileSnapshot struct {
	Documents []document.Document `json:"documents"`
}

func NewFileBackend(path string) (*FileBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("file backend path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create vector store directory: %w", err)
	}

	backend := &FileBackend{path: path, docs: make(map[string]document.Document)}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return backend, nil
	case err != nil:
		return nil, fmt.Errorf("read vector store file: %w", err)
	}

	var snapshot fileSnapshot
	if err := sonic.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("decode vector store file %s: %w", path, err)
	}
	for _, doc := range snapshot.Documents {
		backend.docs[doc.ID] = doc
	}
	return backend, nil
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) Save(_ context.Context, docs []document.Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		b.docs[doc.ID] = doc
	}
	return b.flushLocked()
}

// flushLocked writes the full snapshot through a temp file and rename so a
// crash mid-write never leaves a truncated store.
func (b *FileBackend) flushLocked() error {
	snapshot := fileSnapshot{Documents: make([]document.Document, 0, len(b.docs))}
	for _, doc := range b.docs {
		snapshot.Documents = append(snapshot.Documents, doc)
	}

	raw, err := sonic.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode vector store snapshot: %w", err)
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write vector store snapshot: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("commit vector store snapshot: %w", err)
	}
	return nil
}

func (b *FileBackend) Load(context.Context) ([]document.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]document.Document, 0, len(b.docs))
	for _, doc := range b.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (b *FileBackend) Get(_ context.Context, id string) (document.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, ok := b.docs[id]
	if !ok {
		return document.Document{}, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	return doc, nil
}

func (b *FileBackend) Count(context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.docs), nil
}

func (b *FileBackend) HealthCheck(context.Context) error {
	_, err := os.Stat(filepath.Dir(b.path))
	return err
}
