// Package api contains the HTTP API contracts of the GCTI incident dashboard.
// Version v1 represents the current stable API version.
package api

// Dataset query parameters
const (
	QueryNEvents  = "n_events"
	QuerySeed     = "seed"
	QueryLimit    = "limit"
	QueryPriority = "priority"
	QueryFormat   = "format"
)

// UploadFormField is the multipart field carrying the uploaded file
const UploadFormField = "file"

// NavigateRequest moves the session to another page
type NavigateRequest struct {
	Page string `json:"page" validate:"required,oneof=home tmti compliance impact"`
}

// PreviewRequest sets the raw-data preview flag of the session. A missing
// Show toggles the current value.
type PreviewRequest struct {
	Show *bool `json:"show,omitempty"`
}
