// Package static provides a deterministic embedding service for tests
// and offline smoke runs: vectors are derived from a hash of the input
// text, so equal inputs always produce bitwise-identical unit vectors.
package static

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/Terronex-dev/aifbin-recall/internal/core/ports/driven"
)

// Ensure Encoder implements the interface.
var _ driven.EmbeddingService = (*Encoder)(nil)

// Encoder emits fixed unit vectors for fixed strings.
type Encoder struct {
	dims  int
	fixed map[string][]float32
}

// NewEncoder creates a static encoder producing vectors of dims
// length.
func NewEncoder(dims int) *Encoder {
	return &Encoder{dims: dims, fixed: make(map[string][]float32)}
}

// Fix pins the vector returned for an exact input text. The vector is
// used as given; callers wanting unit vectors supply them normalized.
func (e *Encoder) Fix(text string, vec []float32) {
	e.fixed[text] = vec
}

// Embed derives a unit vector from a SHA-256 of the text.
func (e *Encoder) Embed(_ context.Context, text string) ([]float32, error) {
	if vec, ok := e.fixed[text]; ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}

	// Expand the digest into dims pseudo-random components.
	vec := make([]float32, e.dims)
	seed := sha256.Sum256([]byte(text))
	var mag float64
	for i := range vec {
		block := sha256.Sum256(append(seed[:], byte(i), byte(i>>8)))
		bits := binary.LittleEndian.Uint32(block[:4])
		v := float64(bits)/float64(math.MaxUint32)*2 - 1
		vec[i] = float32(v)
		mag += v * v
	}
	mag = math.Sqrt(mag)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / mag)
	}
	return vec, nil
}

// EmbedBatch maps Embed over the inputs.
func (e *Encoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the configured vector length.
func (e *Encoder) Dimensions() int {
	return e.dims
}

// ModelName identifies the stub.
func (e *Encoder) ModelName() string {
	return "static"
}

// Ping always succeeds.
func (e *Encoder) Ping(_ context.Context) error {
	return nil
}

// Close releases nothing.
func (e *Encoder) Close() error {
	return nil
}
