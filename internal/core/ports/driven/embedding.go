package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// This is an optional capability - when nil, text queries without a
// caller-supplied vector cannot be answered.
//
// The first call may block on model acquisition; later calls are fast.
// Implementations must tolerate concurrent calls, though they may
// serialize internally.
type EmbeddingService interface {
	// Embed generates a unit-normalized vector embedding for the text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// Equivalent to mapping Embed, batched internally.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight
	// request, without running inference.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
