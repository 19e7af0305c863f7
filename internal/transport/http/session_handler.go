package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"gctidash/internal/dashboard"
	apierrors "gctidash/internal/errors"
	"gctidash/internal/infrastructure"
	"gctidash/internal/middleware"
	"gctidash/internal/services"
	api "gctidash/pkg/contracts/api/v1"
)

// SessionHeader lets API clients without cookies name their session
const SessionHeader = "X-Session-ID"

// SessionManager binds every request to a dashboard session
type SessionManager struct {
	service DashboardServiceInterface
	cookie  string
	maxAge  time.Duration
	logger  *slog.Logger
}

// NewSessionManager creates the session middleware. maxAge bounds the cookie lifetime.
func NewSessionManager(service DashboardServiceInterface, cookieName string, maxAge time.Duration, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		service: service,
		cookie:  cookieName,
		maxAge:  maxAge,
		logger:  logger.With(slog.String("component", "session_manager")),
	}
}

// Middleware resolves the session from the X-Session-ID header or the
// session cookie, starting a new one when neither names a live session
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			if c, err := r.Cookie(m.cookie); err == nil {
				id = c.Value
			}
		}

		sess, created := m.service.EnsureSession(r.Context(), id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     m.cookie,
				Value:    sess.ID,
				Path:     "/",
				MaxAge:   int(m.maxAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			m.logger.DebugContext(r.Context(), "session started",
				slog.String("session_id", sess.ID),
				slog.Bool("replaced", id != ""))
		}
		w.Header().Set(SessionHeader, sess.ID)

		ctx := infrastructure.WithSessionID(r.Context(), sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionID returns the session bound to the request
func SessionID(r *http.Request) string {
	return infrastructure.GetSessionID(r.Context())
}

// SessionHandler exposes session state and navigation
type SessionHandler struct {
	service      DashboardServiceInterface
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service DashboardServiceInterface, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "session")),
	}
}

// Routes returns the session routes
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetSession)
	r.Post("/page", h.Navigate)
	r.Post("/preview", h.SetPreview)
	return r
}

// GetSession handles GET /api/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Session(r.Context(), SessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, view)
}

// Navigate handles POST /api/session/page
func (h *SessionHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req api.NavigateRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.service.Navigate(r.Context(), SessionID(r), req.Page)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, view)
}

// SetPreview handles POST /api/session/preview. An empty body toggles.
func (h *SessionHandler) SetPreview(w http.ResponseWriter, r *http.Request) {
	var req api.PreviewRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	view, err := h.service.SetPreview(r.Context(), SessionID(r), req.Show)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, view)
}

// serviceError maps service sentinels to API errors
func serviceError(err error) error {
	switch {
	case errors.Is(err, dashboard.ErrSessionNotFound):
		return apierrors.ErrSessionNotFound
	case errors.Is(err, services.ErrNoUpload):
		return apierrors.ErrNoUpload
	}
	return err
}
