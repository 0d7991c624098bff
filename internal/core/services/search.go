package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Terronex-dev/aifbin-recall/internal/core/domain"
	"github.com/Terronex-dev/aifbin-recall/internal/core/ports/driven"
	"github.com/Terronex-dev/aifbin-recall/internal/logger"
)

// SearchEngine ranks stored chunks against a query. It is stateless
// over the Store; any number of engines may share one Store.
type SearchEngine struct {
	store driven.Store
}

// NewSearchEngine creates a search engine over the store.
func NewSearchEngine(store driven.Store) *SearchEngine {
	return &SearchEngine{store: store}
}

// Search performs pure vector ranking of all candidate chunks against
// the query vector.
func (e *SearchEngine) Search(
	ctx context.Context, queryVec []float32, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	limit := opts.EffectiveLimit()
	if limit == 0 {
		return []domain.SearchResult{}, nil
	}

	candidates, err := e.loadCandidates(ctx, opts.Collection)
	if err != nil {
		return nil, err
	}
	logger.Debug("Vector search: %d candidates", len(candidates))

	results := make([]domain.SearchResult, 0, len(candidates))
	for i := range candidates {
		sim, err := Cosine(queryVec, candidates[i].Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", candidates[i].ID, err)
		}
		if sim < opts.Threshold {
			continue
		}
		results = append(results, domain.SearchResult{
			Chunk:       candidates[i],
			Score:       sim,
			VectorScore: sim,
		})
	}

	sortByScore(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Hybrid fuses cosine similarity with normalized BM25 keyword scores:
// score = w*vector + (1-w)*keyword, with missing sides contributing 0.
func (e *SearchEngine) Hybrid(
	ctx context.Context, queryVec []float32, queryText string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	limit := opts.EffectiveLimit()
	if limit == 0 {
		return []domain.SearchResult{}, nil
	}
	weight := opts.EffectiveWeight()

	collectionID := ""
	if opts.Collection != "" {
		col, err := e.resolveCollection(ctx, opts.Collection)
		if err != nil {
			return nil, err
		}
		collectionID = col.ID
	}

	candidates, err := e.loadCandidatesByID(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	// Vector side: cosine for every candidate, in load order.
	vector := make(map[string]float64, len(candidates))
	byID := make(map[string]*domain.MemoryChunk, len(candidates))
	order := make([]string, 0, len(candidates))
	for i := range candidates {
		sim, err := Cosine(queryVec, candidates[i].Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", candidates[i].ID, err)
		}
		vector[candidates[i].ID] = sim
		byID[candidates[i].ID] = &candidates[i]
		order = append(order, candidates[i].ID)
	}

	// Keyword side: BM25 hits over a 3x candidate pool, normalized so
	// the best hit maps to 1.0 and the worst to 0.0.
	hits, err := e.store.KeywordSearch(ctx, queryText, collectionID, 3*limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	keyword := normalizeBM25(hits)
	logger.Debug("Hybrid search: %d vector candidates, %d keyword hits", len(candidates), len(hits))

	// Keyword-only ids append after the vector candidates so the
	// stable sort has a deterministic input order.
	for _, hit := range hits {
		if _, ok := byID[hit.ChunkID]; ok {
			continue
		}
		chunk, err := e.store.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", hit.ChunkID, err)
		}
		byID[hit.ChunkID] = chunk
		order = append(order, hit.ChunkID)
	}

	results := make([]domain.SearchResult, 0, len(order))
	for _, id := range order {
		v := vector[id]
		k := keyword[id]
		score := weight*v + (1-weight)*k
		if score < opts.Threshold {
			continue
		}
		results = append(results, domain.SearchResult{
			Chunk:        *byID[id],
			Score:        score,
			VectorScore:  v,
			KeywordScore: k,
		})
	}

	sortByScore(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Recall fetches a single chunk by id; nil when absent.
func (e *SearchEngine) Recall(ctx context.Context, id string) (*domain.MemoryChunk, error) {
	chunk, err := e.store.GetChunk(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	return chunk, nil
}

// resolveCollection maps a collection name to its row, translating
// absence into ErrUnknownCollection.
func (e *SearchEngine) resolveCollection(ctx context.Context, name string) (*domain.Collection, error) {
	col, err := e.store.GetCollection(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("collection %q: %w", name, domain.ErrUnknownCollection)
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return col, nil
}

// loadCandidates loads all candidate chunks for a collection name, or
// every chunk when the name is empty.
func (e *SearchEngine) loadCandidates(ctx context.Context, collection string) ([]domain.MemoryChunk, error) {
	if collection == "" {
		return e.store.GetAllChunks(ctx)
	}
	col, err := e.resolveCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	return e.store.GetChunksByCollection(ctx, col.ID)
}

// loadCandidatesByID is loadCandidates keyed by a resolved id.
func (e *SearchEngine) loadCandidatesByID(ctx context.Context, collectionID string) ([]domain.MemoryChunk, error) {
	if collectionID == "" {
		return e.store.GetAllChunks(ctx)
	}
	return e.store.GetChunksByCollection(ctx, collectionID)
}

// Cosine computes the cosine similarity of two same-length vectors,
// accumulating dot product and magnitudes in float64 over the float32
// components. A zero-magnitude side yields 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrDimMismatch, len(a), len(b))
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}

// normalizeBM25 maps raw BM25 ranks (lower is better) onto [0, 1] with
// the best hit at 1.0. A non-empty hit set always contains a 1.0.
func normalizeBM25(hits []domain.KeywordHit) map[string]float64 {
	scores := make(map[string]float64, len(hits))
	if len(hits) == 0 {
		return scores
	}

	minRank, maxRank := hits[0].Score, hits[0].Score
	for _, hit := range hits[1:] {
		if hit.Score < minRank {
			minRank = hit.Score
		}
		if hit.Score > maxRank {
			maxRank = hit.Score
		}
	}
	rankRange := maxRank - minRank
	if rankRange == 0 {
		rankRange = 1
	}

	for _, hit := range hits {
		scores[hit.ChunkID] = 1 - (hit.Score-minRank)/rankRange
	}
	return scores
}

// sortByScore orders results descending by score, preserving the
// candidate order on ties.
func sortByScore(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
