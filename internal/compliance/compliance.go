// Package compliance aggregates authorization compliance and risk categories
// of an incident dataset.
package compliance

import (
	"errors"
	"fmt"
	"sort"

	"gctidash/internal/dataset"
	apperrors "gctidash/internal/errors"
	"gctidash/internal/stats"
	"gctidash/pkg/contracts/domain"
)

// DefaultNonComplianceThresholdPct is the rate under which the target is met
const DefaultNonComplianceThresholdPct = 5.0

const (
	StatusMeetsTarget  = "meets_target"
	StatusMissesTarget = "does_not_meet_target"
	LabelAuthorized    = "Authorized"
	LabelUnauthorized  = "Unauthorized"
)

// ErrEmptyDataset is returned when a rate is requested over no rows
var ErrEmptyDataset = apperrors.NewInsufficientDataError("dataset has no rows", nil)

// Policy holds the compliance policy constants
type Policy struct {
	NonComplianceThresholdPct float64 `json:"non_compliance_threshold_pct" validate:"gt=0,lte=100"`
}

// DefaultPolicy returns the default policy
func DefaultPolicy() Policy {
	return Policy{NonComplianceThresholdPct: DefaultNonComplianceThresholdPct}
}

// Rate is the non-compliance rate of a dataset
type Rate struct {
	Total        int     `json:"total"`
	Unauthorized int     `json:"unauthorized"`
	Percent      float64 `json:"percent"`
	ThresholdPct float64 `json:"threshold_pct"`
	MeetsTarget  bool    `json:"meets_target"`
	Status       string  `json:"status"`
}

// Count is a category label with its number of rows
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Report bundles every compliance aggregate of a dataset
type Report struct {
	NonCompliance    Rate    `json:"non_compliance"`
	Authorization    []Count `json:"authorization"`
	EventBreakdown   []Count `json:"event_breakdown"`
	RiskDistribution []Count `json:"risk_distribution"`
	MaturityLevels   []Count `json:"maturity_levels"`
}

// Aggregator computes compliance aggregates under a Policy
type Aggregator struct {
	policy Policy
}

// NewAggregator creates an aggregator. A non-positive threshold falls back to the default.
func NewAggregator(policy Policy) *Aggregator {
	if policy.NonComplianceThresholdPct <= 0 {
		policy.NonComplianceThresholdPct = DefaultNonComplianceThresholdPct
	}
	return &Aggregator{policy: policy}
}

// Policy returns the policy in effect
func (a *Aggregator) Policy() Policy {
	return a.policy
}

// NonCompliance returns the share of rows that are unauthorized changes
func (a *Aggregator) NonCompliance(ds *dataset.Dataset) (Rate, error) {
	total := ds.Len()
	if total == 0 {
		return Rate{}, ErrEmptyDataset
	}

	unauthorized := 0
	for _, inc := range ds.Incidents() {
		if !inc.Authorized() {
			unauthorized++
		}
	}

	// The target compares the unrounded rate; Percent is for display only.
	raw := float64(unauthorized) / float64(total) * 100
	rate := Rate{
		Total:        total,
		Unauthorized: unauthorized,
		Percent:      stats.Round2(raw),
		ThresholdPct: a.policy.NonComplianceThresholdPct,
		MeetsTarget:  raw < a.policy.NonComplianceThresholdPct,
	}
	rate.Status = StatusMissesTarget
	if rate.MeetsTarget {
		rate.Status = StatusMeetsTarget
	}
	return rate, nil
}

// EventBreakdown counts event types among unauthorized rows, most frequent
// first. Equal counts are ordered by label.
func (a *Aggregator) EventBreakdown(ds *dataset.Dataset) []Count {
	counts := make(map[string]int)
	for _, inc := range ds.Incidents() {
		if !inc.Authorized() {
			counts[inc.EventType]++
		}
	}
	return sortedCounts(counts)
}

// RiskDistribution counts rows per risk level over the fixed order
// Critical, High, Medium, Low. Absent levels have a zero count.
func (a *Aggregator) RiskDistribution(ds *dataset.Dataset) []Count {
	counts := make(map[domain.Risk]int, 4)
	for _, inc := range ds.Incidents() {
		counts[inc.RiskCriticality]++
	}

	out := make([]Count, 0, 4)
	for _, level := range domain.RiskLevels() {
		out = append(out, Count{Label: string(level), Count: counts[level]})
	}
	return out
}

// AuthorizationSplit counts authorized and unauthorized rows
func (a *Aggregator) AuthorizationSplit(ds *dataset.Dataset) []Count {
	authorized := 0
	for _, inc := range ds.Incidents() {
		if inc.Authorized() {
			authorized++
		}
	}
	return []Count{
		{Label: LabelAuthorized, Count: authorized},
		{Label: LabelUnauthorized, Count: ds.Len() - authorized},
	}
}

// MaturityDistribution counts rows per maturity level present in the dataset
func (a *Aggregator) MaturityDistribution(ds *dataset.Dataset) []Count {
	counts := make(map[string]int)
	for _, inc := range ds.Incidents() {
		counts[inc.MaturityLevel]++
	}
	return sortedCounts(counts)
}

// Report computes every aggregate
func (a *Aggregator) Report(ds *dataset.Dataset) (Report, error) {
	rate, err := a.NonCompliance(ds)
	if err != nil {
		return Report{}, fmt.Errorf("compliance report: %w", err)
	}
	return Report{
		NonCompliance:    rate,
		Authorization:    a.AuthorizationSplit(ds),
		EventBreakdown:   a.EventBreakdown(ds),
		RiskDistribution: a.RiskDistribution(ds),
		MaturityLevels:   a.MaturityDistribution(ds),
	}, nil
}

// IsEmpty reports whether err came from aggregating an empty dataset
func IsEmpty(err error) bool {
	return errors.Is(err, ErrEmptyDataset)
}

func sortedCounts(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
