package config

// Application constants
const (
	AppName    = "gcti-dashboard"
	AppVersion = "1.0.0"
)

// Dataset and analysis defaults
const (
	DefaultNEvents                   = 2500
	DefaultSeed                      = 42
	DefaultTrailingWindowDays        = 180
	DefaultNonComplianceThresholdPct = 5.0
	DefaultAffectedPerHour           = 40.0
	DefaultHistogramBins             = 30
	DefaultPreviewRows               = 5
	MaxPreviewRows                   = 500
)

// Upload and session defaults
const (
	DefaultUploadMaxBytes = 10 << 20
	DefaultSessionCookie  = "gcti_session"
)

// API endpoints
const (
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
