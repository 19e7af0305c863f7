// Package config loads the dashboard configuration.
//
// # Configuration Sources
//
// Values are resolved in order of increasing precedence:
//
//	1. Default()
//	2. A YAML file: $GCTI_CONFIG_FILE, config.yaml or configs/config.yaml
//	3. Environment variables prefixed GCTI_, optionally seeded from a .env file
//
// # Environment Variables
//
// Nested sections join with underscores:
//
//	GCTI_SERVER_PORT=8080
//	GCTI_DATASET_N_EVENTS=2500
//	GCTI_DATASET_SEED=42
//	GCTI_DATASET_TRAILING_WINDOW_DAYS=180
//	GCTI_DATASET_ANCHOR_DATE=2026-03-31
//	GCTI_ANALYSIS_NON_COMPLIANCE_THRESHOLD_PCT=5
//	GCTI_ANALYSIS_AFFECTED_PER_HOUR=40
//	GCTI_UPLOAD_MAX_BYTES=10485760
//	GCTI_LOGGING_LEVEL=debug
//	GCTI_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Validation
//
// Load rejects out-of-range values with a CONFIG error instead of silently
// correcting them.
package config
