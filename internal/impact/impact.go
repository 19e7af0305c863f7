// Package impact translates High-priority downtime into an estimate of the
// population affected.
package impact

import (
	"math"

	"gctidash/internal/dataset"
	"gctidash/internal/ingest"
	"gctidash/internal/stats"
	"gctidash/pkg/contracts/domain"
)

// DefaultAffectedPerHour is the regional estimate of people affected per hour of downtime
const DefaultAffectedPerHour = 40.0

// Params holds the translation constants
type Params struct {
	AffectedPerHour float64 `json:"affected_per_hour" validate:"gt=0"`
}

// DefaultParams returns the default constants
func DefaultParams() Params {
	return Params{AffectedPerHour: DefaultAffectedPerHour}
}

// Impact is the social impact of High-priority incidents
type Impact struct {
	HighPriorityIncidents int     `json:"high_priority_incidents"`
	DowntimeMinutes       float64 `json:"downtime_minutes"`
	DowntimeHours         float64 `json:"downtime_hours"`
	AffectedPerHour       float64 `json:"affected_per_hour"`
	AffectedCount         int64   `json:"affected_count"`
}

// Translate sums High-priority resolution minutes into hours of downtime and
// multiplies by AffectedPerHour, flooring the result.
func Translate(ds *dataset.Dataset, p Params) Impact {
	if p.AffectedPerHour <= 0 {
		p.AffectedPerHour = DefaultAffectedPerHour
	}

	minutes := 0.0
	n := 0
	for _, inc := range ds.Incidents() {
		if inc.Priority == domain.PriorityHigh {
			minutes += inc.ResolutionMinutes
			n++
		}
	}

	hours := minutes / 60
	return Impact{
		HighPriorityIncidents: n,
		DowntimeMinutes:       stats.Round2(minutes),
		DowntimeHours:         stats.Round2(hours),
		AffectedPerHour:       p.AffectedPerHour,
		AffectedCount:         int64(math.Floor(hours * p.AffectedPerHour)),
	}
}

// ProvinceShare is the part of the affected estimate attributed to one province
type ProvinceShare struct {
	Province string  `json:"province"`
	Rows     int     `json:"rows"`
	Share    float64 `json:"share"`
	Affected int64   `json:"affected"`
}

// CrossReference is the simulated impact distributed over the provinces of an upload
type CrossReference struct {
	Impact    Impact          `json:"impact"`
	Available bool            `json:"available"`
	Provinces []ProvinceShare `json:"provinces,omitempty"`
}

// Distribute splits the affected estimate across provinces in proportion to
// their row counts. Shares are floored, so their sum may fall short of the
// total by less than one person per province.
func Distribute(imp Impact, geo ingest.GeoBreakdown) CrossReference {
	xref := CrossReference{Impact: imp}
	if !geo.ProvinceAvailable || len(geo.Provinces) == 0 {
		return xref
	}

	total := 0
	for _, p := range geo.Provinces {
		total += p.Count
	}

	xref.Available = true
	xref.Provinces = make([]ProvinceShare, 0, len(geo.Provinces))
	for _, p := range geo.Provinces {
		share := float64(p.Count) / float64(total)
		xref.Provinces = append(xref.Provinces, ProvinceShare{
			Province: p.Province,
			Rows:     p.Count,
			Share:    stats.Round2(share * 100),
			Affected: int64(math.Floor(share * float64(imp.AffectedCount))),
		})
	}
	return xref
}
