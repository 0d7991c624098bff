package domain

import "time"

// Collection is a named bucket of memory chunks sharing one embedding
// dimensionality.
type Collection struct {
	// ID is the unique identifier for the collection.
	ID string

	// Name is the unique human-readable name.
	Name string

	// Description is an optional free-form description.
	Description string

	// FileCount is the number of distinct source files in the collection.
	// Recomputed by UpdateCollectionStats.
	FileCount int

	// ChunkCount is the number of chunks in the collection.
	// Recomputed by UpdateCollectionStats.
	ChunkCount int

	// CreatedAt is when the collection was created.
	CreatedAt time.Time

	// UpdatedAt is when the collection was last modified.
	UpdatedAt time.Time
}

// MemoryChunk is a unit of retrievable content: text plus its
// pre-computed embedding and opaque metadata.
type MemoryChunk struct {
	// ID is the stable unique identifier for the chunk.
	ID string

	// CollectionID links to the owning Collection.
	CollectionID string

	// SourceFile is the absolute path of the memory file the chunk
	// was ingested from.
	SourceFile string

	// ChunkIndex is the ordinal position within the source file.
	ChunkIndex int

	// Text is the UTF-8 text content.
	Text string

	// Embedding is the dense vector representation.
	Embedding []float32

	// Metadata contains arbitrary key-value pairs carried from the
	// memory file, persisted verbatim.
	Metadata map[string]any

	// CreatedAt is when the chunk was inserted.
	CreatedAt time.Time

	// UpdatedAt is when the chunk row was last written.
	UpdatedAt time.Time
}

// FileEntry summarises one ingested source file.
type FileEntry struct {
	// SourceFile is the absolute path of the memory file.
	SourceFile string

	// ChunkCount is the number of chunks stored for the file.
	ChunkCount int
}

// KeywordHit is a raw full-text match from the keyword index.
// Score is the engine's BM25 rank where lower is better.
type KeywordHit struct {
	ChunkID string
	Score   float64
}
