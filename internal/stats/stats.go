// Package stats computes descriptive statistics over incident resolution times.
package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gctidash/internal/dataset"
	apperrors "gctidash/internal/errors"
	"gctidash/pkg/contracts/domain"
)

// DefaultPercentile is the percentile reported in a Summary
const DefaultPercentile = 0.90

var (
	// ErrInsufficientData is returned when a statistic is requested over no values
	ErrInsufficientData = apperrors.NewInsufficientDataError("insufficient data", nil)
	// ErrNonFinite is returned when an input value is NaN or infinite
	ErrNonFinite = errors.New("non-finite value")
)

// Summary holds the descriptive statistics of a sample, rounded to 2 decimals
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P90    float64 `json:"p90"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize returns mean, sample standard deviation (n-1), 90th percentile,
// minimum and maximum of values. A single value has a standard deviation of 0.
func Summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, ErrInsufficientData
	}
	if err := checkFinite(values); err != nil {
		return Summary{}, err
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mean := Mean(sorted)
	return Summary{
		Count:  len(sorted),
		Mean:   Round2(mean),
		StdDev: Round2(stdDev(sorted, mean)),
		P90:    Round2(percentileSorted(sorted, DefaultPercentile)),
		Min:    Round2(sorted[0]),
		Max:    Round2(sorted[len(sorted)-1]),
	}, nil
}

// ResolutionByPriority returns resolution_minutes of the rows with priority p
func ResolutionByPriority(ds *dataset.Dataset, p domain.Priority) []float64 {
	var out []float64
	for _, inc := range ds.Incidents() {
		if inc.Priority == p {
			out = append(out, inc.ResolutionMinutes)
		}
	}
	return out
}

// SummarizePriority summarizes resolution_minutes over the rows with priority p
func SummarizePriority(ds *dataset.Dataset, p domain.Priority) (Summary, error) {
	s, err := Summarize(ResolutionByPriority(ds, p))
	if err != nil {
		return Summary{}, fmt.Errorf("summarize %s priority: %w", p, err)
	}
	return s, nil
}

// Mean returns the arithmetic mean, or NaN for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation of values
func StdDev(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrInsufficientData
	}
	if err := checkFinite(values); err != nil {
		return 0, err
	}
	return stdDev(values, Mean(values)), nil
}

func stdDev(values []float64, mean float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	sumSquaredDiff := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquaredDiff += diff * diff
	}
	return math.Sqrt(sumSquaredDiff / float64(len(values)-1))
}

// Percentile returns the q-th quantile (0..1) by linear interpolation
// between the closest ranks.
func Percentile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrInsufficientData
	}
	if q < 0 || q > 1 || math.IsNaN(q) {
		return 0, fmt.Errorf("quantile %v out of range [0,1]", q)
	}
	if err := checkFinite(values); err != nil {
		return 0, err
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return percentileSorted(sorted, q), nil
}

func percentileSorted(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	weight := pos - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Round2 rounds v to 2 decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func checkFinite(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("value %d: %w", i, ErrNonFinite)
		}
	}
	return nil
}
