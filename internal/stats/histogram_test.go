package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHistogram(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		bins       int
		wantCounts []int
		wantEdges  []float64
	}{
		{
			name:       "evenly spread",
			values:     []float64{0, 1, 2, 3, 4},
			bins:       2,
			wantCounts: []int{2, 3},
			wantEdges:  []float64{0, 2, 4},
		},
		{
			name:       "max lands in last bin",
			values:     []float64{10, 20, 30, 40},
			bins:       3,
			wantCounts: []int{1, 1, 2},
			wantEdges:  []float64{10, 20, 30, 40},
		},
		{
			name:       "all equal",
			values:     []float64{5, 5, 5},
			bins:       1,
			wantCounts: []int{3},
			wantEdges:  []float64{4.5, 5.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHistogram(tt.values, tt.bins)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCounts, h.Counts)
			assert.InDeltaSlice(t, tt.wantEdges, h.Edges, 1e-9)
		})
	}
}

func TestNewHistogram_CountsEveryValue(t *testing.T) {
	values := make([]float64, 0, 500)
	for i := 0; i < 500; i++ {
		values = append(values, 30+float64(i)*0.9)
	}

	h, err := NewHistogram(values, DefaultBins)
	require.NoError(t, err)

	total := 0
	for _, c := range h.Counts {
		total += c
	}
	assert.Equal(t, len(values), total)
	assert.Len(t, h.Edges, DefaultBins+1)
}

func TestNewHistogram_Errors(t *testing.T) {
	_, err := NewHistogram(nil, 10)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = NewHistogram([]float64{1}, 0)
	assert.Error(t, err)
}
