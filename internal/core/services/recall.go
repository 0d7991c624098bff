package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Terronex-dev/aifbin-recall/internal/core/domain"
	"github.com/Terronex-dev/aifbin-recall/internal/core/ports/driven"
	"github.com/Terronex-dev/aifbin-recall/internal/core/ports/driving"
	"github.com/Terronex-dev/aifbin-recall/internal/logger"
)

// Ensure RecallService implements the driving port.
var _ driving.RecallService = (*RecallService)(nil)

// RecallService is the facade composing the search engine, the
// indexer, and the store. Transports bind to it directly.
type RecallService struct {
	store    driven.Store
	engine   *SearchEngine
	indexer  *Indexer
	embedder driven.EmbeddingService
}

// NewRecallService creates the facade. The embedder is optional; when
// nil, text queries without a caller-supplied vector fail with
// domain.ErrEmbeddingUnavailable.
func NewRecallService(
	store driven.Store,
	engine *SearchEngine,
	indexer *Indexer,
	embedder driven.EmbeddingService,
) *RecallService {
	return &RecallService{
		store:    store,
		engine:   engine,
		indexer:  indexer,
		embedder: embedder,
	}
}

// Search ranks stored chunks against the request. A request carrying
// only text is embedded first and ranked hybrid; a request carrying
// only a vector is ranked pure-vector.
func (s *RecallService) Search(ctx context.Context, req driving.SearchRequest) ([]domain.SearchResult, error) {
	query := strings.TrimSpace(req.Query)
	queryVec := req.Embedding

	if len(queryVec) == 0 && query == "" {
		return nil, fmt.Errorf("query or embedding required: %w", domain.ErrInvalidInput)
	}

	if len(queryVec) == 0 {
		if s.embedder == nil {
			return nil, domain.ErrEmbeddingUnavailable
		}
		logger.Debug("Embedding query (%d chars)", len(query))
		vec, err := s.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embedding query: %w", err)
		}
		queryVec = vec
	}

	if query == "" {
		return s.engine.Search(ctx, queryVec, req.Options)
	}
	return s.engine.Hybrid(ctx, queryVec, query, req.Options)
}

// Recall fetches a single chunk by id; nil when absent.
func (s *RecallService) Recall(ctx context.Context, id string) (*domain.MemoryChunk, error) {
	return s.engine.Recall(ctx, id)
}

// ListCollections returns all collections.
func (s *RecallService) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	return s.store.ListCollections(ctx)
}

// GetCollection returns a collection by name.
func (s *RecallService) GetCollection(ctx context.Context, name string) (*domain.Collection, error) {
	return s.store.GetCollection(ctx, name)
}

// CreateCollection creates a collection, returning the existing row
// when the name is already taken.
func (s *RecallService) CreateCollection(ctx context.Context, name, description string) (*domain.Collection, error) {
	col, err := s.store.CreateCollection(ctx, name, description)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return s.store.GetCollection(ctx, name)
	}
	return col, err
}

// DeleteCollection removes a collection and its chunks.
func (s *RecallService) DeleteCollection(ctx context.Context, name string) (bool, error) {
	return s.store.DeleteCollection(ctx, name)
}

// IndexDirectory ingests a directory of memory files.
func (s *RecallService) IndexDirectory(ctx context.Context, req driving.IndexRequest) (*driving.IndexReport, error) {
	if req.Path == "" || req.Collection == "" {
		return nil, fmt.Errorf("path and collection required: %w", domain.ErrInvalidInput)
	}

	files, chunks, err := s.indexer.IndexDirectory(ctx, req.Path, req.Collection, req.Recursive)
	if err != nil {
		return nil, err
	}
	return &driving.IndexReport{FilesIndexed: files, ChunksIndexed: chunks}, nil
}

// ListFiles returns per-file chunk counts, optionally scoped to a
// collection name.
func (s *RecallService) ListFiles(ctx context.Context, collection string) ([]domain.FileEntry, error) {
	collectionID := ""
	if collection != "" {
		col, err := s.store.GetCollection(ctx, collection)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("collection %q: %w", collection, domain.ErrUnknownCollection)
		}
		if err != nil {
			return nil, err
		}
		collectionID = col.ID
	}
	return s.store.ListFiles(ctx, collectionID)
}

// GetFileChunks returns a source file's chunks in index order.
func (s *RecallService) GetFileChunks(ctx context.Context, sourceFile string) ([]domain.MemoryChunk, error) {
	return s.store.GetChunksBySourceFile(ctx, sourceFile)
}

// DeleteFile removes all chunks for a source file and refreshes the
// stats of the collections they belonged to.
func (s *RecallService) DeleteFile(ctx context.Context, sourceFile string) (int, error) {
	chunks, err := s.store.GetChunksBySourceFile(ctx, sourceFile)
	if err != nil {
		return 0, err
	}

	n, err := s.store.DeleteChunksBySource(ctx, sourceFile)
	if err != nil {
		return 0, err
	}

	if err := s.refreshStats(ctx, chunks); err != nil {
		return n, err
	}
	return n, nil
}

// DeleteChunk removes a single chunk by id.
func (s *RecallService) DeleteChunk(ctx context.Context, id string) (bool, error) {
	chunk, err := s.store.GetChunk(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	removed, err := s.store.DeleteChunk(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		if err := s.store.UpdateCollectionStats(ctx, chunk.CollectionID); err != nil {
			return true, err
		}
	}
	return removed, nil
}

// refreshStats recomputes stats for each collection the chunks
// belonged to.
func (s *RecallService) refreshStats(ctx context.Context, chunks []domain.MemoryChunk) error {
	seen := make(map[string]bool)
	for i := range chunks {
		id := chunks[i].CollectionID
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := s.store.UpdateCollectionStats(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
