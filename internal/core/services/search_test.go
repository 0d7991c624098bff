package services_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Terronex-dev/aifbin-recall/internal/adapters/driven/storage/sqlite"
	"github.com/Terronex-dev/aifbin-recall/internal/core/domain"
	"github.com/Terronex-dev/aifbin-recall/internal/core/services"
)

// setupStore creates a temporary SQLite store.
func setupStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// seedCollection inserts chunks into a fresh collection and returns it.
func seedCollection(t *testing.T, store *sqlite.Store, name string, chunks ...domain.MemoryChunk) *domain.Collection {
	t.Helper()
	ctx := context.Background()

	col, err := store.CreateCollection(ctx, name, "")
	require.NoError(t, err)
	for i := range chunks {
		chunks[i].CollectionID = col.ID
	}
	if len(chunks) > 0 {
		require.NoError(t, store.InsertChunks(ctx, chunks))
	}
	return col
}

func chunk(id, source string, index int, text string, embedding []float32) domain.MemoryChunk {
	return domain.MemoryChunk{
		ID:         id,
		SourceFile: source,
		ChunkIndex: index,
		Text:       text,
		Embedding:  embedding,
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical unit vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero left side", []float32{0, 0}, []float32{1, 0}, 0.0},
		{"zero right side", []float32{1, 0}, []float32{0, 0}, 0.0},
		{"unnormalized inputs", []float32{2, 0}, []float32{5, 0}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := services.Cosine(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestCosine_DimMismatch(t *testing.T) {
	_, err := services.Cosine([]float32{1, 0}, []float32{1, 0, 0})
	assert.ErrorIs(t, err, domain.ErrDimMismatch)
}

func TestSearch_SelfSimilarityIsOne(t *testing.T) {
	store := setupStore(t)
	seedCollection(t, store, "c", chunk("c1", "/m/a.aif-bin", 0, "hello world", []float32{0.6, 0.8, 0}))

	engine := services.NewSearchEngine(store)
	results, err := engine.Search(context.Background(), []float32{0.6, 0.8, 0},
		domain.SearchOptions{Collection: "c"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].VectorScore, 1e-6)
	assert.Equal(t, results[0].Score, results[0].VectorScore)
	assert.Equal(t, "hello world", results[0].Chunk.Text)
}

func TestSearch_UnknownCollection(t *testing.T) {
	store := setupStore(t)
	engine := services.NewSearchEngine(store)

	_, err := engine.Search(context.Background(), []float32{1, 0},
		domain.SearchOptions{Collection: "x"})
	assert.ErrorIs(t, err, domain.ErrUnknownCollection)
}

func TestSearch_EmptyCollection(t *testing.T) {
	store := setupStore(t)
	seedCollection(t, store, "c")

	engine := services.NewSearchEngine(store)
	results, err := engine.Search(context.Background(), []float32{1, 0},
		domain.SearchOptions{Collection: "c"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_RankingAndLimit(t *testing.T) {
	store := setupStore(t)
	seedCollection(t, store, "c",
		chunk("far", "/m/a.aif-bin", 0, "far", []float32{0, 1, 0}),
		chunk("near", "/m/a.aif-bin", 1, "near", []float32{1, 0, 0}),
		chunk("mid", "/m/a.aif-bin", 2, "mid", []float32{0.7071, 0.7071, 0}),
	)

	engine := services.NewSearchEngine(store)
	query := []float32{1, 0, 0}

	results, err := engine.Search(context.Background(), query, domain.SearchOptions{Collection: "c"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "near", results[0].Chunk.ID)
	assert.Equal(t, "mid", results[1].Chunk.ID)
	assert.Equal(t, "far", results[2].Chunk.ID)

	limited, err := engine.Search(context.Background(), query,
		domain.SearchOptions{Collection: "c", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSearch_ThresholdAboveEverything(t *testing.T) {
	store := setupStore(t)
	seedCollection(t, store, "c", chunk("c1", "/m/a.aif-bin", 0, "text", []float32{1, 0}))

	engine := services.NewSearchEngine(store)
	results, err := engine.Search(context.Background(), []float32{1, 0},
		domain.SearchOptions{Collection: "c", Threshold: 1.5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ExplicitZeroLimit(t *testing.T) {
	store := setupStore(t)
	seedCollection(t, store, "c", chunk("c1", "/m/a.aif-bin", 0, "text", []float32{1, 0}))

	engine := services.NewSearchEngine(store)
	results, err := engine.Search(context.Background(), []float32{1, 0},
		domain.SearchOptions{Collection: "c", Limit: 0, LimitSet: true})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_DimMismatch(t *testing.T) {
	store := setupStore(t)
	seedCollection(t, store, "c", chunk("c1", "/m/a.aif-bin", 0, "text", []float32{1, 0, 0}))

	engine := services.NewSearchEngine(store)
	_, err := engine.Search(context.Background(), []float32{1, 0},
		domain.SearchOptions{Collection: "c"})
	assert.ErrorIs(t, err, domain.ErrDimMismatch)
}

// Hybrid fusion with the spec's literal scenario: A's text matches the
// keywords but its vector is orthogonal; B's vector matches exactly
// but its text does not.
func TestHybrid_WeightedFusion(t *testing.T) {
	store := setupStore(t)
	query := []float32{1, 0, 0}
	seedCollection(t, store, "c",
		chunk("A", "/m/a.aif-bin", 0, "apples and bananas", []float32{0, 1, 0}),
		chunk("B", "/m/a.aif-bin", 1, "oranges", query),
	)
	engine := services.NewSearchEngine(store)

	results, err := engine.Hybrid(context.Background(), query, "apples",
		domain.SearchOptions{Collection: "c", HybridWeight: 0.5, WeightSet: true})
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[string]domain.SearchResult{}
	for _, r := range results {
		byID[r.Chunk.ID] = r
	}

	// A: vector 0, sole keyword hit normalized to 1.0.
	assert.InDelta(t, 0.0, byID["A"].VectorScore, 1e-6)
	assert.InDelta(t, 1.0, byID["A"].KeywordScore, 1e-6)
	assert.InDelta(t, 0.5, byID["A"].Score, 1e-6)

	// B: vector 1.0, no keyword hit.
	assert.InDelta(t, 1.0, byID["B"].VectorScore, 1e-6)
	assert.InDelta(t, 0.0, byID["B"].KeywordScore, 1e-6)
	assert.InDelta(t, 0.5, byID["B"].Score, 1e-6)

	// With w=0.7 the vector side dominates: B then A.
	results, err = engine.Hybrid(context.Background(), query, "apples",
		domain.SearchOptions{Collection: "c", HybridWeight: 0.7, WeightSet: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "B", results[0].Chunk.ID)
	assert.InDelta(t, 0.7, results[0].Score, 1e-6)
	assert.Equal(t, "A", results[1].Chunk.ID)
	assert.InDelta(t, 0.3, results[1].Score, 1e-6)
}

func TestHybrid_PureVectorWeight(t *testing.T) {
	store := setupStore(t)
	query := []float32{1, 0}
	seedCollection(t, store, "c",
		chunk("A", "/m/a.aif-bin", 0, "apples", []float32{0, 1}),
		chunk("B", "/m/a.aif-bin", 1, "pears", []float32{0.8, 0.6}),
	)
	engine := services.NewSearchEngine(store)

	// w=1: fused score equals the pure-vector score for every result.
	results, err := engine.Hybrid(context.Background(), query, "apples",
		domain.SearchOptions{Collection: "c", HybridWeight: 1, WeightSet: true})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, r.VectorScore, r.Score)
	}
}

func TestHybrid_PureKeywordWeight(t *testing.T) {
	store := setupStore(t)
	query := []float32{1, 0}
	seedCollection(t, store, "c",
		chunk("A", "/m/a.aif-bin", 0, "apples everywhere", []float32{0, 1}),
		chunk("B", "/m/a.aif-bin", 1, "no fruit here", []float32{1, 0}),
	)
	engine := services.NewSearchEngine(store)

	// w=0: fused score equals the normalized keyword score.
	results, err := engine.Hybrid(context.Background(), query, "apples",
		domain.SearchOptions{Collection: "c", HybridWeight: 0, WeightSet: true})
	require.NoError(t, err)

	for _, r := range results {
		assert.Equal(t, r.KeywordScore, r.Score)
		assert.GreaterOrEqual(t, r.KeywordScore, 0.0)
		assert.LessOrEqual(t, r.KeywordScore, 1.0)
	}
}

func TestHybrid_KeywordScoresNormalized(t *testing.T) {
	store := setupStore(t)
	seedCollection(t, store, "c",
		chunk("A", "/m/a.aif-bin", 0, "fruit fruit fruit fruit", []float32{0, 1}),
		chunk("B", "/m/a.aif-bin", 1, "fruit and other words entirely unrelated", []float32{1, 0}),
		chunk("C", "/m/a.aif-bin", 2, "nothing relevant", []float32{0.5, 0.5}),
	)
	engine := services.NewSearchEngine(store)

	results, err := engine.Hybrid(context.Background(), []float32{0, 1}, "fruit",
		domain.SearchOptions{Collection: "c", HybridWeight: 0, WeightSet: true, Threshold: 0.0})
	require.NoError(t, err)

	var best float64
	for _, r := range results {
		assert.GreaterOrEqual(t, r.KeywordScore, 0.0)
		assert.LessOrEqual(t, r.KeywordScore, 1.0)
		best = math.Max(best, r.KeywordScore)
	}
	// A non-empty hit set always contains a normalized 1.0.
	assert.InDelta(t, 1.0, best, 1e-9)
}

func TestHybrid_ZeroQueryVectorFallsThroughToKeywords(t *testing.T) {
	store := setupStore(t)
	seedCollection(t, store, "c",
		chunk("A", "/m/a.aif-bin", 0, "apples", []float32{0, 1}),
		chunk("B", "/m/a.aif-bin", 1, "pears", []float32{1, 0}),
	)
	engine := services.NewSearchEngine(store)

	results, err := engine.Hybrid(context.Background(), []float32{0, 0}, "apples",
		domain.SearchOptions{Collection: "c"})
	require.NoError(t, err)

	// Similarity is 0 everywhere, so only the keyword hit scores.
	require.NotEmpty(t, results)
	assert.Equal(t, "A", results[0].Chunk.ID)
	assert.InDelta(t, 0.0, results[0].VectorScore, 1e-9)
	assert.InDelta(t, 0.3, results[0].Score, 1e-6)
}

func TestRecall(t *testing.T) {
	store := setupStore(t)
	seedCollection(t, store, "c", chunk("c1", "/m/a.aif-bin", 0, "remembered", []float32{1, 0}))

	engine := services.NewSearchEngine(store)
	got, err := engine.Recall(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "remembered", got.Text)

	missing, err := engine.Recall(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
