package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/carolinespringscc/cricket-agent/internal/domain/document"
	"github.com/carolinespringscc/cricket-agent/internal/embeddings"
)

// Memory is the in-process engine every deployment runs. With an embedder it
// ranks by cosine similarity over brute-force scan; without one it falls back
// to deterministic lexical overlap. Both paths apply filters before ranking.
type Memory struct {
	mu       sync.RWMutex
	docs     map[string]document.Document
	hashes   map[string]string
	embedder embeddings.Embedder

	dedupeHits atomic.Uint64
	errors     atomic.Uint64
}

func NewMemory(embedder embeddings.Embedder) *Memory {
	return &Memory{
		docs:     make(map[string]document.Document),
		hashes:   make(map[string]string),
		embedder: embedder,
	}
}

func (m *Memory) Upsert(ctx context.Context, docs []document.Document) (UpsertResult, error) {
	var result UpsertResult

	// Embed outside the lock; one provider call covers the whole batch.
	pending := make([]int, 0, len(docs))
	texts := make([]string, 0, len(docs))
	m.mu.RLock()
	for i, doc := range docs {
		if doc.ID == "" {
			continue
		}
		if m.hashes[doc.ID] == doc.ContentHash() {
			continue
		}
		if doc.Embedding == nil && m.embedder != nil {
			pending = append(pending, i)
			texts = append(texts, doc.Text)
		}
	}
	m.mu.RUnlock()

	embedFailed := make(map[string]struct{})
	if len(pending) > 0 {
		vectors, err := m.embedder.Embed(ctx, texts)
		if err != nil {
			m.errors.Add(1)
			for _, i := range pending {
				embedFailed[docs[i].ID] = struct{}{}
				result.Errors = append(result.Errors, DocumentError{ID: docs[i].ID, Reason: err.Error()})
			}
		} else {
			for n, i := range pending {
				docs[i].Embedding = vectors[n]
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		if doc.ID == "" {
			result.Errors = append(result.Errors, DocumentError{ID: "", Reason: "document has no id"})
			m.errors.Add(1)
			continue
		}
		if _, failed := embedFailed[doc.ID]; failed {
			// Keep the text so the lexical fallback can serve it, but leave
			// the hash unset so the next sync retries the embedding instead
			// of dedupe-hitting on a vectorless document.
			m.docs[doc.ID] = doc
			delete(m.hashes, doc.ID)
			continue
		}
		hash := doc.ContentHash()
		if m.hashes[doc.ID] == hash {
			result.DedupeHits = append(result.DedupeHits, doc.ID)
			m.dedupeHits.Add(1)
			continue
		}
		m.docs[doc.ID] = doc
		m.hashes[doc.ID] = hash
		result.Upserted++
	}

	return result, nil
}

func (m *Memory) Query(ctx context.Context, text string, filters map[string]string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}

	var queryVector []float32
	if m.embedder != nil {
		vectors, err := m.embedder.Embed(ctx, []string{text})
		if err == nil && len(vectors) == 1 {
			queryVector = vectors[0]
		} else if err != nil {
			m.errors.Add(1)
		}
	}

	return m.rank(text, queryVector, filters, k), nil
}

// QueryWithVector ranks against a pre-computed query vector. The tiered store
// uses it to embed once and fan out to both native and in-memory search.
func (m *Memory) QueryWithVector(text string, queryVector []float32, filters map[string]string, k int) []string {
	if k <= 0 {
		return nil
	}
	return m.rank(text, queryVector, filters, k)
}

type scoredDoc struct {
	id    string
	score float64
}

func (m *Memory) rank(text string, queryVector []float32, filters map[string]string, k int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queryTokens := tokenize(text)
	scored := make([]scoredDoc, 0, len(m.docs))
	for id, doc := range m.docs {
		if !doc.Matches(filters) {
			continue
		}
		var score float64
		if queryVector != nil && doc.Embedding != nil {
			score = cosineSimilarity(queryVector, doc.Embedding)
		} else {
			score = lexicalScore(queryTokens, doc.Text)
		}
		if score <= 0 {
			continue
		}
		scored = append(scored, scoredDoc{id: id, score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].id < scored[j].id
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	out := make([]string, len(scored))
	for i, item := range scored {
		out[i] = item.id
	}
	return out
}

func (m *Memory) GetDocument(_ context.Context, id string) (document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return document.Document{}, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	return doc, nil
}

func (m *Memory) GetStats(context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byType := make(map[string]int)
	for _, doc := range m.docs {
		byType[doc.Metadata[document.MetaType]]++
	}
	return Stats{
		Documents:  len(m.docs),
		ByType:     byType,
		DedupeHits: m.dedupeHits.Load(),
		Errors:     m.errors.Load(),
	}, nil
}

func (m *Memory) HealthCheck(context.Context) error {
	return nil
}

// Replace loads a full document set, keeping existing entries that the
// snapshot does not mention. Used by tiered warmup.
func (m *Memory) Replace(docs []document.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		m.docs[doc.ID] = doc
		m.hashes[doc.ID] = doc.ContentHash()
	}
}

// Put stores a single document without dedupe accounting. Used to cache
// backend reads.
func (m *Memory) Put(doc document.Document) {
	if doc.ID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	m.hashes[doc.ID] = doc.ContentHash()
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func tokenize(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		token := strings.Trim(field, ".,:;!?()[]\"'")
		if len(token) < 2 {
			continue
		}
		out[token] = struct{}{}
	}
	return out
}

func lexicalScore(queryTokens map[string]struct{}, text string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	docTokens := tokenize(text)
	overlap := 0
	for token := range queryTokens {
		if _, ok := docTokens[token]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryTokens))
}
