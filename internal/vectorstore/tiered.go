package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/carolinespringscc/cricket-agent/internal/domain/document"
	"github.com/carolinespringscc/cricket-agent/internal/embeddings"
	"github.com/carolinespringscc/cricket-agent/internal/platform/logging"
)

// Tiered composes the in-memory engine with durable backends in priority
// order. Writes land in memory first, then fan out to every backend; reads
// prefer memory and fall through to the first backend that has the document.
type Tiered struct {
	memory   *Memory
	backends []Backend
	embedder embeddings.Embedder
	logger   *logging.Logger
	timeout  time.Duration
}

func NewTiered(memory *Memory, backends []Backend, embedder embeddings.Embedder, logger *logging.Logger, timeout time.Duration) *Tiered {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Tiered{
		memory:   memory,
		backends: backends,
		embedder: embedder,
		logger:   logger,
		timeout:  timeout,
	}
}

// Warmup restores the in-memory map from the first backend that responds.
// Call once at startup; a cold store is not an error.
func (t *Tiered) Warmup(ctx context.Context) {
	for _, backend := range t.backends {
		loadCtx, cancel := context.WithTimeout(ctx, t.timeout)
		docs, err := backend.Load(loadCtx)
		cancel()
		if err != nil {
			t.logger.WarnContext(ctx, "vector store warmup failed, trying next backend",
				"backend", backend.Name(), "error", err)
			continue
		}
		t.memory.Replace(docs)
		t.logger.InfoContext(ctx, "vector store warmed up",
			"backend", backend.Name(), "documents", len(docs))
		return
	}
	if len(t.backends) > 0 {
		t.logger.WarnContext(ctx, "vector store warmup exhausted all backends, starting cold")
	}
}

func (t *Tiered) Upsert(ctx context.Context, docs []document.Document) (UpsertResult, error) {
	result, err := t.memory.Upsert(ctx, docs)
	if err != nil {
		return result, err
	}
	if result.Upserted == 0 {
		return result, nil
	}

	// Only documents that actually changed reach the backends; dedupe hits
	// never generate backend traffic.
	dedupe := make(map[string]struct{}, len(result.DedupeHits))
	for _, id := range result.DedupeHits {
		dedupe[id] = struct{}{}
	}
	changed := make([]document.Document, 0, result.Upserted)
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		if _, hit := dedupe[doc.ID]; hit {
			continue
		}
		stored, err := t.memory.GetDocument(ctx, doc.ID)
		if err != nil {
			continue
		}
		changed = append(changed, stored)
	}

	workers := pool.New().WithMaxGoroutines(len(t.backends) + 1)
	for _, backend := range t.backends {
		backend := backend
		workers.Go(func() {
			saveCtx, cancel := context.WithTimeout(ctx, t.timeout)
			defer cancel()
			if err := backend.Save(saveCtx, changed); err != nil {
				t.memory.errors.Add(1)
				t.logger.WarnContext(ctx, "vector store backend save failed",
					"backend", backend.Name(), "documents", len(changed), "error", err)
			}
		})
	}
	workers.Wait()

	return result, nil
}

func (t *Tiered) Query(ctx context.Context, text string, filters map[string]string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}

	var queryVector []float32
	if t.embedder != nil {
		vectors, err := t.embedder.Embed(ctx, []string{text})
		if err != nil {
			t.memory.errors.Add(1)
			t.logger.WarnContext(ctx, "query embedding failed, using lexical fallback", "error", err)
		} else if len(vectors) == 1 {
			queryVector = vectors[0]
		}
	}

	if queryVector != nil {
		for _, backend := range t.backends {
			searcher, ok := backend.(Searcher)
			if !ok {
				continue
			}
			searchCtx, cancel := context.WithTimeout(ctx, t.timeout)
			ids, err := searcher.Search(searchCtx, queryVector, filters, k)
			cancel()
			if err != nil {
				t.memory.errors.Add(1)
				t.logger.WarnContext(ctx, "native vector search failed, trying next tier",
					"backend", backend.Name(), "error", err)
				continue
			}
			if len(ids) > 0 {
				return ids, nil
			}
		}
	}

	return t.memory.QueryWithVector(text, queryVector, filters, k), nil
}

func (t *Tiered) GetDocument(ctx context.Context, id string) (document.Document, error) {
	doc, err := t.memory.GetDocument(ctx, id)
	if err == nil {
		return doc, nil
	}

	for _, backend := range t.backends {
		getCtx, cancel := context.WithTimeout(ctx, t.timeout)
		doc, backendErr := backend.Get(getCtx, id)
		cancel()
		if backendErr != nil {
			continue
		}
		t.memory.Put(doc)
		return doc, nil
	}

	return document.Document{}, err
}

func (t *Tiered) GetStats(ctx context.Context) (Stats, error) {
	stats, err := t.memory.GetStats(ctx)
	if err != nil {
		return stats, err
	}

	stats.Backends = make(map[string]string, len(t.backends))
	for _, backend := range t.backends {
		checkCtx, cancel := context.WithTimeout(ctx, t.timeout)
		if err := backend.HealthCheck(checkCtx); err != nil {
			stats.Backends[backend.Name()] = "error: " + err.Error()
		} else {
			stats.Backends[backend.Name()] = "ok"
		}
		cancel()
	}
	return stats, nil
}

// HealthCheck passes while at least one tier can serve. Memory always can,
// so this only fails when every configured durable backend is down.
func (t *Tiered) HealthCheck(ctx context.Context) error {
	if len(t.backends) == 0 {
		return nil
	}
	var lastErr error
	for _, backend := range t.backends {
		checkCtx, cancel := context.WithTimeout(ctx, t.timeout)
		err := backend.HealthCheck(checkCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("backend %s: %w", backend.Name(), err)
	}
	return lastErr
}
