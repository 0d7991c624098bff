package driven

import (
	"context"

	"github.com/Terronex-dev/aifbin-recall/internal/core/domain"
)

// Store is the persistent index over collections, chunks, and the
// keyword inverted index. A single Store owns the underlying database
// file; multiple search engines and indexers may share one instance.
type Store interface {
	// CreateCollection creates a named collection.
	// Returns domain.ErrAlreadyExists if the name is taken.
	CreateCollection(ctx context.Context, name, description string) (*domain.Collection, error)

	// GetCollection retrieves a collection by name.
	GetCollection(ctx context.Context, name string) (*domain.Collection, error)

	// GetCollectionByID retrieves a collection by id.
	GetCollectionByID(ctx context.Context, id string) (*domain.Collection, error)

	// ListCollections returns all collections ordered by name.
	ListCollections(ctx context.Context) ([]domain.Collection, error)

	// DeleteCollection removes a collection and cascades to its chunks.
	// Returns true when a row was removed.
	DeleteCollection(ctx context.Context, name string) (bool, error)

	// InsertChunk stores a single chunk.
	InsertChunk(ctx context.Context, chunk *domain.MemoryChunk) error

	// InsertChunks stores a batch of chunks inside one transaction.
	// On any row failure the transaction aborts leaving the store
	// unchanged.
	InsertChunks(ctx context.Context, chunks []domain.MemoryChunk) error

	// GetChunk retrieves a chunk by id.
	GetChunk(ctx context.Context, id string) (*domain.MemoryChunk, error)

	// GetChunksByCollection returns all chunks for a collection.
	GetChunksByCollection(ctx context.Context, collectionID string) ([]domain.MemoryChunk, error)

	// GetAllChunks returns every stored chunk across collections.
	GetAllChunks(ctx context.Context) ([]domain.MemoryChunk, error)

	// GetChunksBySourceFile returns a source file's chunks ordered by
	// chunk index.
	GetChunksBySourceFile(ctx context.Context, sourceFile string) ([]domain.MemoryChunk, error)

	// DeleteChunk removes a chunk by id. Returns true when a row was
	// removed.
	DeleteChunk(ctx context.Context, id string) (bool, error)

	// DeleteChunksBySource removes all chunks for a source file and
	// returns the number removed.
	DeleteChunksBySource(ctx context.Context, sourceFile string) (int, error)

	// ListFiles returns per-file chunk counts, grouped and ordered by
	// source file name. Empty collectionID lists all collections.
	ListFiles(ctx context.Context, collectionID string) ([]domain.FileEntry, error)

	// KeywordSearch runs a BM25 full-text query over chunk text.
	// Results are ordered by BM25 rank ascending (lower is better) and
	// limited. Empty collectionID searches all collections.
	KeywordSearch(ctx context.Context, query, collectionID string, limit int) ([]domain.KeywordHit, error)

	// UpdateCollectionStats recomputes the collection's file and chunk
	// counts and bumps its updated timestamp.
	UpdateCollectionStats(ctx context.Context, collectionID string) error

	// Close releases the database handle.
	Close() error
}
