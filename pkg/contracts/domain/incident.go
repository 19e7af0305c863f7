package domain

import (
	"fmt"
	"strings"
	"time"
)

// Incident represents one row of the synthetic incident-tracking dataset
type Incident struct {
	ID                 string    `json:"incident_id" validate:"required"`
	Priority           Priority  `json:"priority" validate:"required"`
	ResolutionMinutes  float64   `json:"resolution_minutes" validate:"gt=0"`
	EventType          string    `json:"event_type" validate:"required"`
	IsAuthorizedChange int       `json:"is_authorized_change" validate:"oneof=0 1"`
	RiskCriticality    Risk      `json:"risk_criticality" validate:"required"`
	MaturityLevel      string    `json:"maturity_level"`
	RegistrationDate   time.Time `json:"registration_date"`
}

// Authorized reports whether the incident originated from an approved change
func (i Incident) Authorized() bool {
	return i.IsAuthorizedChange == 1
}

// Column names of the incident table, in export order
const (
	ColumnIncidentID         = "incident_id"
	ColumnPriority           = "priority"
	ColumnResolutionMinutes  = "resolution_minutes"
	ColumnEventType          = "event_type"
	ColumnIsAuthorizedChange = "is_authorized_change"
	ColumnRiskCriticality    = "risk_criticality"
	ColumnMaturityLevel      = "maturity_level"
	ColumnRegistrationDate   = "registration_date"
)

// IncidentColumns returns the fixed column list of the incident table
func IncidentColumns() []string {
	return []string{
		ColumnIncidentID,
		ColumnPriority,
		ColumnResolutionMinutes,
		ColumnEventType,
		ColumnIsAuthorizedChange,
		ColumnRiskCriticality,
		ColumnMaturityLevel,
		ColumnRegistrationDate,
	}
}

// DateLayout is the on-wire format of RegistrationDate
const DateLayout = "2006-01-02"

// Priority is the incident priority category
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities returns all priorities in descending order of urgency
func Priorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

// ResolutionRange returns the inclusive bounds of resolution minutes for p
func (p Priority) ResolutionRange() (lo, hi float64) {
	switch p {
	case PriorityHigh:
		return 30, 480
	case PriorityMedium:
		return 60, 1440
	case PriorityLow:
		return 120, 4320
	}
	return 0, 0
}

// Risk returns the risk level an authorized incident of this priority maps to
func (p Priority) Risk() Risk {
	switch p {
	case PriorityHigh:
		return RiskHigh
	case PriorityMedium:
		return RiskMedium
	default:
		return RiskLow
	}
}

var priorityAliases = map[string]Priority{
	"high":   PriorityHigh,
	"alta":   PriorityHigh,
	"medium": PriorityMedium,
	"media":  PriorityMedium,
	"low":    PriorityLow,
	"baja":   PriorityLow,
}

// ParsePriority accepts English and Spanish labels, case-insensitively
func ParsePriority(s string) (Priority, error) {
	if p, ok := priorityAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// Risk is the four-level ordinal risk criticality
type Risk string

const (
	RiskCritical Risk = "Critical"
	RiskHigh     Risk = "High"
	RiskMedium   Risk = "Medium"
	RiskLow      Risk = "Low"
)

// RiskLevels returns the fixed display order of risk levels
func RiskLevels() []Risk {
	return []Risk{RiskCritical, RiskHigh, RiskMedium, RiskLow}
}

var riskAliases = map[string]Risk{
	"critical": RiskCritical,
	"crítico":  RiskCritical,
	"critico":  RiskCritical,
	"high":     RiskHigh,
	"alto":     RiskHigh,
	"medium":   RiskMedium,
	"medio":    RiskMedium,
	"low":      RiskLow,
	"bajo":     RiskLow,
}

// ParseRisk accepts English and Spanish labels, case-insensitively
func ParseRisk(s string) (Risk, error) {
	if r, ok := riskAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown risk level %q", s)
}

// MaturityLevelTarget is the constant maturity label of the simulated run
const MaturityLevelTarget = "Level 3"

// NonComplianceEvents are the event types of unauthorized changes
func NonComplianceEvents() []string {
	return []string{
		"Unauthorized change in EHR",
		"Infrastructure problem (unapproved change)",
		"Cloud platform error (uncontrolled)",
	}
}

// OperationalEvents are the event types of standard operational incidents
func OperationalEvents() []string {
	return []string{
		"Hardware failure",
		"Network/connectivity problem",
		"Application error",
		"Service request",
		"Minor security incident",
	}
}

// IsNonComplianceEvent reports whether eventType belongs to the unauthorized-change vocabulary
func IsNonComplianceEvent(eventType string) bool {
	for _, e := range NonComplianceEvents() {
		if e == eventType {
			return true
		}
	}
	return false
}

// IsOperationalEvent reports whether eventType belongs to the operational vocabulary
func IsOperationalEvent(eventType string) bool {
	for _, e := range OperationalEvents() {
		if e == eventType {
			return true
		}
	}
	return false
}
