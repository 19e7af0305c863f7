package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "gctidash/internal/errors"
)

// EnvPrefix namespaces every environment variable, e.g. GCTI_SERVER_PORT
const EnvPrefix = "GCTI"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Dataset   DatasetConfig   `yaml:"dataset" envconfig:"DATASET"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Upload    UploadConfig    `yaml:"upload" envconfig:"UPLOAD"`
	Session   SessionConfig   `yaml:"session" envconfig:"SESSION"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// DatasetConfig controls synthetic dataset generation
type DatasetConfig struct {
	NEvents            int    `yaml:"n_events" envconfig:"N_EVENTS"`
	Seed               uint64 `yaml:"seed" envconfig:"SEED"`
	TrailingWindowDays int    `yaml:"trailing_window_days" envconfig:"TRAILING_WINDOW_DAYS"`
	// AnchorDate (YYYY-MM-DD) is the day registration dates count back from.
	// Empty means the process start date.
	AnchorDate string `yaml:"anchor_date" envconfig:"ANCHOR_DATE"`
}

// AnalysisConfig holds the policy constants of the analyses
type AnalysisConfig struct {
	NonComplianceThresholdPct float64 `yaml:"non_compliance_threshold_pct" envconfig:"NON_COMPLIANCE_THRESHOLD_PCT"`
	AffectedPerHour           float64 `yaml:"affected_per_hour" envconfig:"AFFECTED_PER_HOUR"`
	HistogramBins             int     `yaml:"histogram_bins" envconfig:"HISTOGRAM_BINS"`
}

// UploadConfig limits real-data uploads
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes" envconfig:"MAX_BYTES"`
}

// SessionConfig controls dashboard session lifetime
type SessionConfig struct {
	CookieName      string        `yaml:"cookie_name" envconfig:"COOKIE_NAME"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	JanitorInterval time.Duration `yaml:"janitor_interval" envconfig:"JANITOR_INTERVAL"`
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. A .env file, when present,
// is loaded into the environment first without overriding variables that are
// already set.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, apperrors.NewConfigError("failed to load .env file", err)
	}

	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("file", configFile)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, apperrors.NewConfigError("config validation failed", err)
	}

	return cfg, nil
}

func loadDotEnv() error {
	path := os.Getenv(EnvPrefix + "_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// loadFromFile overlays the YAML file at filePath onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// AnchorTime returns the configured anchor date, or now when none is set
func (c *Config) AnchorTime(now time.Time) (time.Time, error) {
	if strings.TrimSpace(c.Dataset.AnchorDate) == "" {
		return now, nil
	}
	t, err := time.Parse("2006-01-02", c.Dataset.AnchorDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid dataset anchor date %q: %w", c.Dataset.AnchorDate, err)
	}
	return t, nil
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server read and write timeouts must be positive")
	}
	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified when CORS is enabled")
	}
	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output %q (console, file or both)", c.Logging.Output)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid logging format %q (json or text)", c.Logging.Format)
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging file path is required for output %q", c.Logging.Output)
	}

	switch c.Telemetry.TraceExporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("invalid trace exporter %q (none or stdout)", c.Telemetry.TraceExporter)
	}

	if c.Dataset.NEvents < 0 {
		return fmt.Errorf("dataset n_events must not be negative, got %d", c.Dataset.NEvents)
	}
	if c.Dataset.TrailingWindowDays <= 0 {
		return fmt.Errorf("dataset trailing_window_days must be positive, got %d", c.Dataset.TrailingWindowDays)
	}
	if _, err := c.AnchorTime(time.Now()); err != nil {
		return err
	}

	if c.Analysis.NonComplianceThresholdPct <= 0 || c.Analysis.NonComplianceThresholdPct > 100 {
		return fmt.Errorf("non_compliance_threshold_pct must be in (0, 100], got %v", c.Analysis.NonComplianceThresholdPct)
	}
	if c.Analysis.AffectedPerHour <= 0 {
		return fmt.Errorf("affected_per_hour must be positive, got %v", c.Analysis.AffectedPerHour)
	}
	if c.Analysis.HistogramBins <= 0 {
		return fmt.Errorf("histogram_bins must be positive, got %d", c.Analysis.HistogramBins)
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max_bytes must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Session.IdleTimeout <= 0 || c.Session.JanitorInterval <= 0 {
		return fmt.Errorf("session idle_timeout and janitor_interval must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie_name is required")
	}

	return nil
}

// getConfigFilePath returns the config file named by GCTI_CONFIG_FILE or the
// first one found in the usual locations
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/dashboard.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			TraceExporter:  "none",
			MetricsEnabled: true,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Dataset: DatasetConfig{
			NEvents:            DefaultNEvents,
			Seed:               DefaultSeed,
			TrailingWindowDays: DefaultTrailingWindowDays,
		},
		Analysis: AnalysisConfig{
			NonComplianceThresholdPct: DefaultNonComplianceThresholdPct,
			AffectedPerHour:           DefaultAffectedPerHour,
			HistogramBins:             DefaultHistogramBins,
		},
		Upload: UploadConfig{
			MaxBytes: DefaultUploadMaxBytes,
		},
		Session: SessionConfig{
			CookieName:      DefaultSessionCookie,
			IdleTimeout:     30 * time.Minute,
			JanitorInterval: time.Minute,
		},
	}
}
