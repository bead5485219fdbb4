package embeddings

import "context"

// Embedder turns text into vectors for semantic search. A nil Embedder is a
// valid configuration; the vector store then falls back to lexical scoring.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions reports the vector width the model produces.
	Dimensions() int
	// HealthCheck verifies the provider is reachable.
	HealthCheck(ctx context.Context) error
}
