// Package services implements the business logic layer of the dashboard.
// Handlers call services; services orchestrate the dataset cache, the
// analysis packages and the session store, and never touch HTTP types.
//
// # Available Services
//
//	- DashboardService: dataset previews, TMTI, compliance and impact views,
//	  uploads and per-session state
//	- HealthService: liveness, readiness and version information
//
// # Insufficient data
//
// A view computed over zero rows is not an error. DashboardService answers
// it with Status "insufficient_data" and a message for the page to show.
package services
