package driving

import (
	"context"

	"github.com/Terronex-dev/aifbin-recall/internal/core/domain"
)

// SearchRequest is the transport-level search input.
type SearchRequest struct {
	// Query is the free text to embed and match. May be empty when
	// Embedding is supplied.
	Query string

	// Embedding is a caller-supplied query vector. When present the
	// embedder is not consulted.
	Embedding []float32

	// Options carries collection, limit, threshold, and hybrid weight.
	Options domain.SearchOptions
}

// IndexRequest asks for a directory of memory files to be ingested.
type IndexRequest struct {
	// Path is the directory to scan for .aif-bin files.
	Path string

	// Collection is the target collection name, created on demand.
	Collection string

	// Recursive walks subdirectories when true.
	Recursive bool
}

// IndexReport summarises one ingestion run.
type IndexReport struct {
	// FilesIndexed is the number of files that contributed chunks.
	FilesIndexed int

	// ChunksIndexed is the total number of chunks inserted.
	ChunksIndexed int
}

// RecallService is the facade the transports bind to.
type RecallService interface {
	// Search ranks stored chunks against the request. When the request
	// carries no embedding the query text is embedded first.
	Search(ctx context.Context, req SearchRequest) ([]domain.SearchResult, error)

	// Recall fetches a single chunk by id, nil when absent.
	Recall(ctx context.Context, id string) (*domain.MemoryChunk, error)

	// ListCollections returns all collections.
	ListCollections(ctx context.Context) ([]domain.Collection, error)

	// GetCollection returns a collection by name.
	GetCollection(ctx context.Context, name string) (*domain.Collection, error)

	// CreateCollection creates a collection, returning the existing one
	// when the name is already taken.
	CreateCollection(ctx context.Context, name, description string) (*domain.Collection, error)

	// DeleteCollection removes a collection and its chunks.
	DeleteCollection(ctx context.Context, name string) (bool, error)

	// IndexDirectory ingests a directory of memory files.
	IndexDirectory(ctx context.Context, req IndexRequest) (*IndexReport, error)

	// ListFiles returns per-file chunk counts, optionally scoped to a
	// collection name.
	ListFiles(ctx context.Context, collection string) ([]domain.FileEntry, error)

	// GetFileChunks returns a source file's chunks in index order.
	GetFileChunks(ctx context.Context, sourceFile string) ([]domain.MemoryChunk, error)

	// DeleteFile removes all chunks for a source file, returning the
	// number removed.
	DeleteFile(ctx context.Context, sourceFile string) (int, error)

	// DeleteChunk removes a single chunk by id.
	DeleteChunk(ctx context.Context, id string) (bool, error)
}
