package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/carolinespringscc/cricket-agent/internal/domain/document"
)

const (
	payloadDocID       = "doc_id"
	payloadText        = "text"
	payloadContentHash = "content_hash"
	scrollPageSize     = 256
)

// QdrantBackend is the managed vector index tier. It is the only backend
// with native similarity search; documents without embeddings are skipped
// because the index cannot hold them.
type QdrantBackend struct {
	client     *qdrant.Client
	collection string
	dims       int
}

type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimensions int
}

func NewQdrantBackend(ctx context.Context, cfg QdrantConfig) (*QdrantBackend, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}

	backend := &QdrantBackend{client: client, collection: cfg.Collection, dims: cfg.Dimensions}
	if err := backend.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return backend, nil
}

func (b *QdrantBackend) ensureCollection(ctx context.Context) error {
	exists, err := b.client.CollectionExists(ctx, b.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", b.collection, err)
	}
	if exists {
		return nil
	}

	err = b.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: b.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(b.dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", b.collection, err)
	}
	return nil
}

func (b *QdrantBackend) Name() string { return "qdrant" }

// pointID derives a stable UUID from the document id; re-ingestion
// overwrites the same point.
func pointID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("cricket:"+docID)).String()
}

func (b *QdrantBackend) Save(ctx context.Context, docs []document.Document) error {
	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" || doc.Embedding == nil {
			continue
		}
		payload := map[string]any{
			payloadDocID:       doc.ID,
			payloadText:        doc.Text,
			payloadContentHash: doc.ContentHash(),
		}
		for key, value := range doc.Metadata {
			payload[key] = value
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(doc.ID)),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		})
	}
	if len(points) == 0 {
		return nil
	}

	_, err := b.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: b.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

func (b *QdrantBackend) Search(ctx context.Context, vector []float32, filters map[string]string, k int) ([]string, error) {
	var filter *qdrant.Filter
	if len(filters) > 0 {
		conditions := make([]*qdrant.Condition, 0, len(filters))
		for key, value := range filters {
			conditions = append(conditions, qdrant.NewMatch(key, value))
		}
		filter = &qdrant.Filter{Must: conditions}
	}

	points, err := b.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: b.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", b.collection, err)
	}

	out := make([]string, 0, len(points))
	for _, point := range points {
		if id := point.Payload[payloadDocID].GetStringValue(); id != "" {
			out = append(out, id)
		}
	}
	return out, nil
}

func (b *QdrantBackend) Load(ctx context.Context) ([]document.Document, error) {
	var out []document.Document
	seen := make(map[string]struct{})
	var offset *qdrant.PointId

	for {
		points, err := b.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: b.collection,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scroll collection %s: %w", b.collection, err)
		}

		progressed := false
		for _, point := range points {
			doc := pointToDocument(point)
			if doc.ID == "" {
				continue
			}
			if _, dup := seen[doc.ID]; dup {
				continue
			}
			seen[doc.ID] = struct{}{}
			out = append(out, doc)
			progressed = true
		}
		if len(points) < scrollPageSize || !progressed {
			return out, nil
		}
		offset = points[len(points)-1].Id
	}
}

func pointToDocument(point *qdrant.RetrievedPoint) document.Document {
	doc := document.Document{Metadata: make(map[string]string)}
	for key, value := range point.Payload {
		switch key {
		case payloadDocID:
			doc.ID = value.GetStringValue()
		case payloadText:
			doc.Text = value.GetStringValue()
		case payloadContentHash:
		default:
			doc.Metadata[key] = value.GetStringValue()
		}
	}
	if vectors := point.Vectors.GetVector(); vectors != nil {
		doc.Embedding = vectors.Data
	}
	return doc
}

func (b *QdrantBackend) Get(ctx context.Context, id string) (document.Document, error) {
	points, err := b.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: b.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(pointID(id))},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return document.Document{}, fmt.Errorf("get point for %s: %w", id, err)
	}
	if len(points) == 0 {
		return document.Document{}, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	return pointToDocument(points[0]), nil
}

func (b *QdrantBackend) Count(ctx context.Context) (int, error) {
	count, err := b.client.Count(ctx, &qdrant.CountPoints{CollectionName: b.collection})
	if err != nil {
		return 0, fmt.Errorf("count collection %s: %w", b.collection, err)
	}
	return int(count), nil
}

func (b *QdrantBackend) HealthCheck(ctx context.Context) error {
	_, err := b.client.HealthCheck(ctx)
	return err
}

func (b *QdrantBackend) Close() error {
	return b.client.Close()
}
