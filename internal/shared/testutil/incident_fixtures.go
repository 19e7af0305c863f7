package testutil

import (
	"fmt"
	"time"

	"gctidash/internal/dataset"
	"gctidash/pkg/contracts/domain"
)

// FixtureDate is the registration date given to fixture incidents
var FixtureDate = time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

// IncidentFixture is a domain.Incident under construction
type IncidentFixture struct {
	inc domain.Incident
}

func fixture(p domain.Priority, minutes float64) IncidentFixture {
	return IncidentFixture{inc: domain.Incident{
		Priority:           p,
		ResolutionMinutes:  minutes,
		EventType:          domain.OperationalEvents()[0],
		IsAuthorizedChange: 1,
		RiskCriticality:    p.Risk(),
		MaturityLevel:      domain.MaturityLevelTarget,
		RegistrationDate:   FixtureDate,
	}}
}

// High returns an authorized High-priority incident
func High(minutes float64) IncidentFixture { return fixture(domain.PriorityHigh, minutes) }

// Medium returns an authorized Medium-priority incident
func Medium(minutes float64) IncidentFixture { return fixture(domain.PriorityMedium, minutes) }

// Low returns an authorized Low-priority incident
func Low(minutes float64) IncidentFixture { return fixture(domain.PriorityLow, minutes) }

// Unauthorized marks the incident as an unapproved change with Critical risk
func (f IncidentFixture) Unauthorized() IncidentFixture {
	f.inc.IsAuthorizedChange = 0
	f.inc.EventType = domain.NonComplianceEvents()[0]
	f.inc.RiskCriticality = domain.RiskCritical
	return f
}

// Event overrides the event type
func (f IncidentFixture) Event(eventType string) IncidentFixture {
	f.inc.EventType = eventType
	return f
}

// Risk overrides the risk criticality
func (f IncidentFixture) Risk(r domain.Risk) IncidentFixture {
	f.inc.RiskCriticality = r
	return f
}

// Maturity overrides the maturity label
func (f IncidentFixture) Maturity(level string) IncidentFixture {
	f.inc.MaturityLevel = level
	return f
}

// Incident returns the built incident
func (f IncidentFixture) Incident() domain.Incident {
	return f.inc
}

// Incidents builds a dataset from fixtures, numbering their identifiers
func Incidents(fixtures ...IncidentFixture) *dataset.Dataset {
	incidents := make([]domain.Incident, len(fixtures))
	for i, f := range fixtures {
		inc := f.inc
		inc.ID = fmt.Sprintf("INC-%08X", i+1)
		incidents[i] = inc
	}
	return dataset.New(incidents)
}

// Repeat returns n copies of f
func Repeat(f IncidentFixture, n int) []IncidentFixture {
	out := make([]IncidentFixture, n)
	for i := range out {
		out[i] = f
	}
	return out
}
