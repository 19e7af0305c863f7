package dataset

import (
	"strconv"

	"gctidash/pkg/contracts/domain"
)

// Dataset is an immutable table of incidents
type Dataset struct {
	options   Options
	incidents []domain.Incident
}

// New wraps incidents in a Dataset. The slice is not copied.
func New(incidents []domain.Incident) *Dataset {
	return &Dataset{incidents: incidents}
}

// Options returns the options the dataset was generated with
func (d *Dataset) Options() Options {
	return d.options
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.incidents)
}

// Columns returns the column names of the table
func (d *Dataset) Columns() []string {
	return domain.IncidentColumns()
}

// Incidents returns the rows. Callers must not modify the returned slice.
func (d *Dataset) Incidents() []domain.Incident {
	if d == nil {
		return nil
	}
	return d.incidents
}

// Head returns the first n rows as a new dataset
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 {
		n = 0
	}
	if n > d.Len() {
		n = d.Len()
	}
	return &Dataset{options: d.options, incidents: d.incidents[:n:n]}
}

// Filter returns the rows for which keep returns true
func (d *Dataset) Filter(keep func(domain.Incident) bool) *Dataset {
	out := make([]domain.Incident, 0, d.Len())
	for _, inc := range d.Incidents() {
		if keep(inc) {
			out = append(out, inc)
		}
	}
	return &Dataset{options: d.options, incidents: out}
}

// ByPriority returns the rows with priority p
func (d *Dataset) ByPriority(p domain.Priority) *Dataset {
	return d.Filter(func(inc domain.Incident) bool { return inc.Priority == p })
}

// Records renders every row as strings in column order
func (d *Dataset) Records() [][]string {
	rows := make([][]string, 0, d.Len())
	for _, inc := range d.Incidents() {
		rows = append(rows, Record(inc))
	}
	return rows
}

// Record renders a single incident in column order
func Record(inc domain.Incident) []string {
	return []string{
		inc.ID,
		string(inc.Priority),
		strconv.FormatFloat(inc.ResolutionMinutes, 'f', 2, 64),
		inc.EventType,
		strconv.Itoa(inc.IsAuthorizedChange),
		string(inc.RiskCriticality),
		inc.MaturityLevel,
		inc.RegistrationDate.Format(domain.DateLayout),
	}
}
