package vectorstore

import (
	"context"

	crerr "github.com/cockroachdb/errors"

	"github.com/carolinespringscc/cricket-agent/internal/domain/document"
)

// ErrNotFound is returned by GetDocument when no backend holds the id.
var ErrNotFound = crerr.New("document not found")

// Store is the central retrieval contract. Query returns document ids
// ordered by relevance; callers fetch text with GetDocument.
type Store interface {
	Upsert(ctx context.Context, docs []document.Document) (UpsertResult, error)
	Query(ctx context.Context, text string, filters map[string]string, k int) ([]string, error)
	GetDocument(ctx context.Context, id string) (document.Document, error)
	GetStats(ctx context.Context) (Stats, error)
	HealthCheck(ctx context.Context) error
}

// UpsertResult reports per-batch outcomes. A dedupe hit is a write skipped
// because the stored content hash already matched.
type UpsertResult struct {
	Upserted   int             `json:"upserted"`
	DedupeHits []string        `json:"dedupe_hits,omitempty"`
	Errors     []DocumentError `json:"errors,omitempty"`
}

type DocumentError struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func (r *UpsertResult) merge(other UpsertResult) {
	r.Upserted += other.Upserted
	r.DedupeHits = append(r.DedupeHits, other.DedupeHits...)
	r.Errors = append(r.Errors, other.Errors...)
}

type Stats struct {
	Documents  int               `json:"documents"`
	ByType     map[string]int    `json:"by_type"`
	DedupeHits uint64            `json:"dedupe_hits"`
	Errors     uint64            `json:"errors"`
	Backends   map[string]string `json:"backends,omitempty"`
}

// Backend is a durable persistence layer behind the in-memory engine. Save
// and Load move whole documents; Search is optional and modeled separately.
type Backend interface {
	Name() string
	Save(ctx context.Context, docs []document.Document) error
	Load(ctx context.Context) ([]document.Document, error)
	Get(ctx context.Context, id string) (document.Document, error)
	Count(ctx context.Context) (int, error)
	HealthCheck(ctx context.Context) error
}

// Searcher is implemented by backends with native similarity search.
type Searcher interface {
	Search(ctx context.Context, vector []float32, filters map[string]string, k int) ([]string, error)
}
