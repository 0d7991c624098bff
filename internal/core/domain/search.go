package domain

// Search defaults applied when the corresponding option is unset.
const (
	// DefaultSearchLimit is the number of results returned when no
	// limit is requested.
	DefaultSearchLimit = 10

	// DefaultHybridWeight is the vector share of the fused score.
	// A weight of 1.0 means pure vector search.
	DefaultHybridWeight = 0.7
)

// SearchOptions configures a search query.
type SearchOptions struct {
	// Collection restricts the search to a named collection.
	// Empty searches all collections.
	Collection string

	// Limit is the maximum number of results.
	Limit int

	// LimitSet marks Limit as explicitly provided, so an explicit
	// Limit of 0 returns an empty result set instead of the default.
	LimitSet bool

	// Threshold drops results scoring below it. Defaults to 0.
	Threshold float64

	// HybridWeight is the vector weight w in the fused score
	// w*vector + (1-w)*keyword.
	HybridWeight float64

	// WeightSet marks HybridWeight as explicitly provided, so an
	// explicit weight of 0 means pure keyword search instead of the
	// default.
	WeightSet bool
}

// EffectiveLimit resolves Limit against DefaultSearchLimit.
func (o SearchOptions) EffectiveLimit() int {
	if o.LimitSet {
		if o.Limit < 0 {
			return 0
		}
		return o.Limit
	}
	if o.Limit <= 0 {
		return DefaultSearchLimit
	}
	return o.Limit
}

// EffectiveWeight resolves HybridWeight against DefaultHybridWeight.
func (o SearchOptions) EffectiveWeight() float64 {
	if !o.WeightSet {
		return DefaultHybridWeight
	}
	return o.HybridWeight
}

// SearchResult is a single ranked hit.
type SearchResult struct {
	// Chunk is the matched chunk, an owned copy.
	Chunk MemoryChunk

	// Score is the final ranking score. For pure vector search this
	// equals VectorScore; for hybrid search it is the weighted fusion.
	Score float64

	// VectorScore is the cosine similarity against the query vector.
	VectorScore float64

	// KeywordScore is the normalized BM25 score in [0, 1].
	// Zero when the chunk was not a keyword hit.
	KeywordScore float64
}
