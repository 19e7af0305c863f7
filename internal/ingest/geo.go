package ingest

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	provinceColumns   = []string{"Province", "Provincia"}
	hemoglobinColumns = []string{"hb_dx", "hemoglobin", "hemoglobina"}
)

// ProvinceCount is the number of rows for one province value
type ProvinceCount struct {
	Province string `json:"province"`
	Count    int    `json:"count"`
}

// GeoBreakdown summarises the geographic and hemoglobin columns of a table.
// A part whose column is absent has its Available flag unset.
type GeoBreakdown struct {
	ProvinceAvailable bool            `json:"province_available"`
	ProvinceColumn    string          `json:"province_column,omitempty"`
	Provinces         []ProvinceCount `json:"provinces,omitempty"`

	HemoglobinAvailable bool     `json:"hemoglobin_available"`
	HemoglobinColumn    string   `json:"hemoglobin_column,omitempty"`
	HemoglobinMean      *float64 `json:"hemoglobin_mean,omitempty"`
	HemoglobinSamples   int      `json:"hemoglobin_samples,omitempty"`
	HemoglobinSkipped   int      `json:"hemoglobin_skipped,omitempty"`
}

// Geographic groups rows by province and averages the hemoglobin column.
// Blank province cells are not counted; blank or non-numeric hemoglobin
// cells are skipped.
func Geographic(t *Table) GeoBreakdown {
	var geo GeoBreakdown
	if t == nil {
		return geo
	}

	if name, idx, ok := t.FirstColumn(provinceColumns...); ok {
		geo.ProvinceAvailable = true
		geo.ProvinceColumn = name
		geo.Provinces = countProvinces(t.Values(idx))
	}

	if name, idx, ok := t.FirstColumn(hemoglobinColumns...); ok {
		geo.HemoglobinAvailable = true
		geo.HemoglobinColumn = name

		sum, n, skipped := 0.0, 0, 0
		for _, cell := range t.Values(idx) {
			if strings.TrimSpace(cell) == "" {
				continue
			}
			v, ok := parseNumber(cell)
			if !ok {
				skipped++
				continue
			}
			sum += v
			n++
		}
		geo.HemoglobinSamples = n
		geo.HemoglobinSkipped = skipped
		if n > 0 {
			mean := sum / float64(n)
			geo.HemoglobinMean = &mean
		}
	}

	return geo
}

func countProvinces(values []string) []ProvinceCount {
	counts := make(map[string]int)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		counts[v]++
	}

	out := make([]ProvinceCount, 0, len(counts))
	for p, n := range counts {
		out = append(out, ProvinceCount{Province: p, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Province < out[j].Province
	})
	return out
}

// parseNumber accepts a decimal point or a decimal comma
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
