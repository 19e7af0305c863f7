// Package http implements the HTTP handlers of the incident dashboard.
// Handlers stay thin: they parse and validate the request, call the
// dashboard or health service, and render the result.
//
// # Routes
//
//	GET    /                            server-rendered dashboard (?page=, ?preview=toggle)
//	GET    /api/dataset                 preview of the synthetic dataset
//	GET    /api/dataset/export.{format} full dataset as csv or xlsx
//	GET    /api/overview                headline figures of the home page
//	GET    /api/tmti                    TMTI summary for ?priority= (default High)
//	GET    /api/compliance              non-compliance and risk breakdowns
//	GET    /api/impact                  social-impact estimate
//	POST   /api/upload                  multipart real-data upload
//	GET    /api/upload                  preview of the session's upload
//	DELETE /api/upload                  discard the session's upload
//	GET    /api/upload/geo              province breakdown and hb_dx mean
//	GET    /api/session                 session state
//	POST   /api/session/page            navigate
//	POST   /api/session/preview         set or toggle the raw-data preview
//	GET    /api/health[/ready|/live]    health checks
//	GET    /api/version                 build information
//	GET    /api/stats                   cache, websocket and runtime counters
//	POST   /api/client-log              log lines reported by the page
//	GET    /metrics                     Prometheus exposition
//
// Every dataset endpoint accepts n_events and seed; omitted values fall
// back to the configured defaults.
//
// # Sessions
//
// SessionManager.Middleware binds each request to a dashboard session. The
// session id is read from the X-Session-ID header, then from the session
// cookie; a new session is started when neither names a live one.
//
// # Errors
//
// Errors are rendered as RFC 7807 problem details by errors.ErrorHandler.
// A dataset too small to analyse is not an error: views answer 200 with
// status "insufficient_data" and an explanatory message.
package http
