package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveLimit(t *testing.T) {
	tests := []struct {
		name string
		opts SearchOptions
		want int
	}{
		{"unset uses default", SearchOptions{}, DefaultSearchLimit},
		{"positive passes through", SearchOptions{Limit: 3}, 3},
		{"explicit zero means none", SearchOptions{Limit: 0, LimitSet: true}, 0},
		{"explicit negative clamps to zero", SearchOptions{Limit: -5, LimitSet: true}, 0},
		{"unset negative uses default", SearchOptions{Limit: -5}, DefaultSearchLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.EffectiveLimit())
		})
	}
}

func TestEffectiveWeight(t *testing.T) {
	assert.InDelta(t, DefaultHybridWeight, SearchOptions{}.EffectiveWeight(), 1e-9)
	assert.InDelta(t, 0.0, SearchOptions{WeightSet: true}.EffectiveWeight(), 1e-9)
	assert.InDelta(t, 1.0, SearchOptions{HybridWeight: 1, WeightSet: true}.EffectiveWeight(), 1e-9)
}
