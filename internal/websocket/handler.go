package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	apierrors "gctidash/internal/errors"
)

// SessionQueryParam names the session a client follows when no cookie is sent
const SessionQueryParam = "session"

// HandlerOptions configures the upgrade endpoint
type HandlerOptions struct {
	ReadBufferSize  int
	WriteBufferSize int
	AllowedOrigins  []string
	SessionCookie   string
}

// Handler upgrades HTTP requests and attaches the connection to a hub
type Handler struct {
	hub      *Hub
	opts     HandlerOptions
	upgrader websocket.Upgrader
	errors   *apierrors.ErrorHandler
	logger   *slog.Logger
}

// NewHandler creates the upgrade handler
func NewHandler(hub *Hub, opts HandlerOptions, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		hub:    hub,
		opts:   opts,
		errors: errorHandler,
		logger: logger.With(slog.String("component", "websocket.handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.errors.HandleError(w, r, apierrors.New(status, apierrors.ErrWebSocketUpgrade.ErrorCode, reason.Error()))
		},
	}
	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := h.sessionID(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered through its Error callback
		h.logger.WarnContext(ctx, "websocket upgrade failed",
			slog.String("origin", r.Header.Get("Origin")),
			slog.String("error", err.Error()))
		return
	}

	client := Serve(h.hub, NewConnectionWrapper(conn), sessionID, chimw.GetReqID(ctx), h.logger)
	h.logger.InfoContext(ctx, "websocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("session_id", sessionID),
		slog.String("remote_addr", r.RemoteAddr))
}

func (h *Handler) sessionID(r *http.Request) string {
	if id := strings.TrimSpace(r.URL.Query().Get(SessionQueryParam)); id != "" {
		return id
	}
	if h.opts.SessionCookie != "" {
		if c, err := r.Cookie(h.opts.SessionCookie); err == nil {
			return c.Value
		}
	}
	return ""
}

// checkOrigin accepts requests without an Origin header, same-host origins
// and the configured allowed origins
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}

	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(origin, allowed) {
			return true
		}
	}

	h.logger.WarnContext(r.Context(), "websocket origin not allowed",
		slog.String("origin", origin),
		slog.Any("allowed_origins", h.opts.AllowedOrigins))
	return false
}
