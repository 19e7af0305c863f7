package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"gctidash/internal/dataset"
	apierrors "gctidash/internal/errors"
	"gctidash/internal/infrastructure"
	"gctidash/internal/websocket"
)

// CacheStatsSource reports dataset cache counters
type CacheStatsSource interface {
	Stats() dataset.CacheStats
}

// HubStatsSource reports WebSocket hub counters
type HubStatsSource interface {
	Stats() websocket.HubStats
}

// MetricsHandler serves the Prometheus exposition and a JSON stats snapshot
type MetricsHandler struct {
	prometheus   http.Handler
	cache        CacheStatsSource
	hub          HubStatsSource
	startTime    time.Time
	errorHandler *apierrors.ErrorHandler
}

// NewMetricsHandler creates a new metrics handler. prometheus is nil when
// metrics are disabled; hub may be nil.
func NewMetricsHandler(prometheus http.Handler, cache CacheStatsSource, hub HubStatsSource, errorHandler *apierrors.ErrorHandler) *MetricsHandler {
	return &MetricsHandler{
		prometheus:   prometheus,
		cache:        cache,
		hub:          hub,
		startTime:    time.Now(),
		errorHandler: errorHandler,
	}
}

// Prometheus handles GET /metrics
func (h *MetricsHandler) Prometheus(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrServiceUnavailable)
		return
	}
	h.prometheus.ServeHTTP(w, r)
}

// StatsResponse is the JSON snapshot served on /api/stats
type StatsResponse struct {
	Cache     dataset.CacheStats          `json:"cache"`
	WebSocket *websocket.HubStats         `json:"websocket,omitempty"`
	Runtime   infrastructure.RuntimeStats `json:"runtime"`
}

// Stats handles GET /api/stats
func (h *MetricsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Cache:   h.cache.Stats(),
		Runtime: infrastructure.CollectRuntime(h.startTime),
	}
	if h.hub != nil {
		hs := h.hub.Stats()
		resp.WebSocket = &hs
	}
	render.JSON(w, r, resp)
}
