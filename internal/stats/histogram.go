package stats

import (
	"fmt"
	"math"
	"slices"
)

// DefaultBins is the bin count of resolution-time histograms
const DefaultBins = 30

// Histogram is an equal-width histogram. Edges has len(Counts)+1 entries;
// every bin is half-open except the last, which includes its right edge.
type Histogram struct {
	Edges  []float64 `json:"edges"`
	Counts []int     `json:"counts"`
}

// NewHistogram bins values into bins equal-width buckets spanning [min, max].
// When all values are equal the range is widened by 0.5 on each side.
func NewHistogram(values []float64, bins int) (Histogram, error) {
	if bins <= 0 {
		return Histogram{}, fmt.Errorf("bins must be positive, got %d", bins)
	}
	if len(values) == 0 {
		return Histogram{}, ErrInsufficientData
	}
	if err := checkFinite(values); err != nil {
		return Histogram{}, err
	}

	lo, hi := slices.Min(values), slices.Max(values)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)

	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	counts := make([]int, bins)
	for _, v := range values {
		idx := int(math.Floor((v - lo) / width))
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}

	return Histogram{Edges: edges, Counts: counts}, nil
}
