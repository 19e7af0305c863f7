package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"gctidash/internal/config"
	"gctidash/internal/dashboard"
	"gctidash/internal/dataset"
	apierrors "gctidash/internal/errors"
	"gctidash/internal/infrastructure"
	customMiddleware "gctidash/internal/middleware"
	"gctidash/internal/services"
	handlers "gctidash/internal/transport/http"
	ws "gctidash/internal/websocket"
	"gctidash/pkg/contracts/events"
)

// Application represents the main application container
type Application struct {
	Config    *config.Config
	Router    *chi.Mux
	Server    *http.Server
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Services  *ServiceContainer

	errorHandler *apierrors.ErrorHandler
	startTime    time.Time
	stopJanitor  context.CancelFunc
	janitorDone  chan struct{}
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Datasets  *dataset.Cache
	Sessions  *dashboard.Store
	WebSocket *ws.Hub
	Dashboard *services.DashboardService
	Health    *services.HealthService
}

// NewApplication loads the configuration and logger, then builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New builds the application from an explicit configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	tel, err := infrastructure.InitializeOTel(cfg.Telemetry, config.AppVersion, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:       cfg,
		Logger:       logger,
		Telemetry:    tel,
		errorHandler: apierrors.NewErrorHandler(logger, cfg.Logging.Development),
		startTime:    time.Now(),
	}

	if err := infrastructure.RegisterRuntimeGauges(tel.Meter, app.startTime); err != nil {
		return nil, fmt.Errorf("failed to register runtime gauges: %w", err)
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	anchor, err := a.Config.AnchorTime(time.Now())
	if err != nil {
		return err
	}

	cache := dataset.NewCache(anchor, a.Config.Dataset.TrailingWindowDays, a.Logger, a.Telemetry.Metrics)
	sessions := dashboard.NewStore(a.Logger)

	hub := ws.NewHub(ws.Options{
		PingPeriod: a.Config.WebSocket.PingPeriod,
		PongWait:   a.Config.WebSocket.PongWait,
		Version:    config.AppVersion,
	}, a.Telemetry.Metrics, a.Logger)
	sessions.Subscribe(hub.Publish)

	settings := services.SettingsFromConfig(a.Config)
	a.Services = &ServiceContainer{
		Datasets:  cache,
		Sessions:  sessions,
		WebSocket: hub,
		Dashboard: services.NewDashboardService(cache, sessions, settings, a.Telemetry.Metrics, a.Logger),
		Health:    services.NewHealthService(config.AppVersion, cache, settings.Defaults, sessions, hub, a.Logger),
	}

	a.Logger.Info("Services initialized",
		slog.String("anchor", anchor.Format("2006-01-02")),
		slog.String("default_dataset", settings.Defaults.String()))
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// The upgrade must see the raw ResponseWriter, so /ws only gets the
	// middleware that leaves it alone.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	r.Handle(config.WebSocketEndpoint, ws.NewHandler(a.Services.WebSocket, ws.HandlerOptions{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		AllowedOrigins:  a.Config.Security.AllowedOrigins,
		SessionCookie:   a.Config.Session.CookieName,
	}, a.errorHandler, a.Logger))

	metrics := handlers.NewMetricsHandler(a.Telemetry.MetricsHandler, a.Services.Datasets, a.Services.WebSocket, a.errorHandler)
	r.Get(config.MetricsEndpoint, metrics.Prometheus)

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.Telemetry).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.errorHandler))
		r.Use(customMiddleware.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.corsConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.errorHandler,
			).Handler)
		}

		a.setupAPIRoutes(r, metrics)
		a.setupHTMLRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, metrics *handlers.MetricsHandler) {
	svc := a.Services.Dashboard
	validator := customMiddleware.NewValidator(a.Logger)
	sessions := handlers.NewSessionManager(svc, a.Config.Session.CookieName, a.Config.Session.IdleTimeout, a.Logger)
	health := handlers.NewHealthHandler(a.Services.Health, a.Logger)

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))

		r.Mount("/health", health.Routes())
		r.Get("/version", health.Version)
		r.Get("/stats", metrics.Stats)
		r.Post("/client-log", handlers.NewClientLogHandler(validator, a.errorHandler, a.Logger).Handle)

		r.Group(func(r chi.Router) {
			r.Use(sessions.Middleware)

			handlers.NewDashboardHandler(svc, a.errorHandler, a.Logger).RegisterRoutes(r)
			r.Mount("/upload", handlers.NewUploadHandler(svc, a.Config.Upload.MaxBytes, a.errorHandler, a.Logger).Routes())
			r.Mount("/session", handlers.NewSessionHandler(svc, validator, a.errorHandler, a.Logger).Routes())
		})
	})
}

// setupHTMLRoutes serves the server-rendered dashboard
func (a *Application) setupHTMLRoutes(r chi.Router) {
	sessions := handlers.NewSessionManager(a.Services.Dashboard, a.Config.Session.CookieName, a.Config.Session.IdleTimeout, a.Logger)
	page := handlers.NewPageHandler(a.Services.Dashboard, config.AppVersion, a.errorHandler, a.Logger)

	r.With(customMiddleware.Compress(5), sessions.Middleware).Get("/", page.ServeHTTP)
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
			handlers.SessionHeader,
		},
		ExposedHeaders:   []string{"X-Request-ID", handlers.SessionHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// StartBackground starts the hub and the session janitor
func (a *Application) StartBackground(ctx context.Context) {
	a.Services.WebSocket.Start()

	janitorCtx, cancel := context.WithCancel(ctx)
	a.stopJanitor = cancel
	a.janitorDone = make(chan struct{})
	go func() {
		defer close(a.janitorDone)
		a.Services.Sessions.RunJanitor(janitorCtx, a.Config.Session.JanitorInterval, a.Config.Session.IdleTimeout)
	}()
}

// Start starts the background services and the HTTP server. cancel is
// called when the server fails after startup.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("addr", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	a.StartBackground(ctx)

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// performStartupHealthCheck generates the default dataset so the first page
// view is served from the cache
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	status := a.Services.Health.ReadinessCheck(ctx)
	if status.Status != services.HealthReady {
		return fmt.Errorf("readiness: %s", status.Status)
	}
	for name, sh := range status.Services {
		a.Logger.DebugContext(ctx, "startup check",
			slog.String("service", name),
			slog.String("message", sh.Message))
	}
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.Services.WebSocket.Broadcast(shutdownCtx, events.MessageTypeSystemStatus, events.SystemStatusData{
		Status:  "shutting_down",
		Uptime:  time.Since(a.startTime).Round(time.Second).String(),
		Version: config.AppVersion,
	})

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.StopBackground()

	if err := a.Telemetry.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// StopBackground stops the janitor and the hub
func (a *Application) StopBackground() {
	if a.stopJanitor != nil {
		a.stopJanitor()
		<-a.janitorDone
		a.stopJanitor = nil
	}
	a.Services.WebSocket.Stop()
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	// ctx may already be cancelled; shutdown gets its own deadline
	return a.Stop(context.Background())
}
