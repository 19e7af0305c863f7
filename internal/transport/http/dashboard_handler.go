package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"gctidash/internal/dataset"
	apierrors "gctidash/internal/errors"
	"gctidash/internal/exporter"
	mw "gctidash/internal/middleware"
	api "gctidash/pkg/contracts/api/v1"
	"gctidash/pkg/contracts/domain"
)

// DashboardHandler serves the analytic views of the generated dataset
type DashboardHandler struct {
	service      DashboardServiceInterface
	query        *mw.QueryParamValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		query:        mw.NewQueryParamValidator(errorHandler),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "dashboard_handler")),
	}
}

// RegisterRoutes adds the view routes to r, which is expected to be the /api router
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/dataset", h.GetDataset)
		r.Get("/overview", h.GetOverview)
		r.Get("/tmti", h.GetTMTI)
		r.Get("/compliance", h.GetCompliance)
		r.Get("/impact", h.GetImpact)
	})
	r.Get("/dataset/export.{format}", h.ExportDataset)
}

// datasetKey reads n_events and seed, falling back to the configured defaults
func (h *DashboardHandler) datasetKey(w http.ResponseWriter, r *http.Request) (dataset.Key, bool) {
	def := h.service.Defaults()

	n, ok := h.query.ValidateInt(w, r, api.QueryNEvents, 0, dataset.MaxNEvents, def.NEvents)
	if !ok {
		return dataset.Key{}, false
	}
	seed, ok := h.query.ValidateUint64(w, r, api.QuerySeed, def.Seed)
	if !ok {
		return dataset.Key{}, false
	}
	return dataset.Key{NEvents: n, Seed: seed}, true
}

// GetDataset handles GET /api/dataset
func (h *DashboardHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	key, ok := h.datasetKey(w, r)
	if !ok {
		return
	}
	settings := h.service.Settings()
	limit, ok := h.query.ValidateInt(w, r, api.QueryLimit, 1, settings.MaxPreviewRows, settings.PreviewRows)
	if !ok {
		return
	}

	preview, err := h.service.Preview(r.Context(), key, limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, preview)
}

// GetOverview handles GET /api/overview
func (h *DashboardHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	key, ok := h.datasetKey(w, r)
	if !ok {
		return
	}

	ov, err := h.service.Overview(r.Context(), key)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, ov)
}

// GetTMTI handles GET /api/tmti
func (h *DashboardHandler) GetTMTI(w http.ResponseWriter, r *http.Request) {
	key, ok := h.datasetKey(w, r)
	if !ok {
		return
	}

	raw := r.URL.Query().Get(api.QueryPriority)
	priority := domain.PriorityHigh
	if raw != "" {
		p, err := domain.ParsePriority(raw)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation(api.QueryPriority, err.Error()))
			return
		}
		priority = p
	}

	view, err := h.service.TMTI(r.Context(), key, priority)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// GetCompliance handles GET /api/compliance
func (h *DashboardHandler) GetCompliance(w http.ResponseWriter, r *http.Request) {
	key, ok := h.datasetKey(w, r)
	if !ok {
		return
	}

	view, err := h.service.Compliance(r.Context(), key)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// GetImpact handles GET /api/impact
func (h *DashboardHandler) GetImpact(w http.ResponseWriter, r *http.Request) {
	key, ok := h.datasetKey(w, r)
	if !ok {
		return
	}

	view, err := h.service.Impact(r.Context(), key, SessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// ExportDataset handles GET /api/dataset/export.{format}
func (h *DashboardHandler) ExportDataset(w http.ResponseWriter, r *http.Request) {
	format, err := exporter.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "format must be one of: csv, xlsx"))
		return
	}
	key, ok := h.datasetKey(w, r)
	if !ok {
		return
	}

	ds, err := h.service.Dataset(r.Context(), key)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := fmt.Sprintf("gcti_incidents_%d_%d.%s", key.NEvents, key.Seed, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := exporter.Write(w, format, ds); err != nil {
		// headers are gone once the body has started
		h.logger.ErrorContext(r.Context(), "export failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("format", string(format)),
			slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(r.Context(), "dataset exported",
		slog.String("format", string(format)),
		slog.String("key", key.String()),
		slog.Int("rows", ds.Len()))
}
