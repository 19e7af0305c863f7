package http

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"gctidash/internal/dashboard"
	"gctidash/internal/dataset"
	apierrors "gctidash/internal/errors"
	"gctidash/internal/services"
	api "gctidash/pkg/contracts/api/v1"
	"gctidash/pkg/contracts/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"pct": func(v float64) string { return formatFloat(v, 2) + "%" },
	"num": func(v float64) string { return formatFloat(v, 2) },
	"inc": func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/dashboard.html"))

// PageData is the model rendered by the dashboard template
type PageData struct {
	Title      string
	Version    string
	Session    *services.SessionView
	Key        dataset.Key
	Overview   *services.Overview
	TMTI       []*services.TMTIView
	Compliance *services.ComplianceView
	Impact     *services.ImpactView
	Preview    *services.DatasetPreview
	Upload     *services.UploadResult
	Error      string

	UploadField string
}

// PageHandler renders the server-side dashboard for the session's current page
type PageHandler struct {
	service      DashboardServiceInterface
	version      string
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(service DashboardServiceInterface, version string, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		service:      service,
		version:      version,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "page")),
	}
}

// ServeHTTP renders GET /. The page and preview query parameters change the
// session before rendering, so plain links drive navigation.
func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := SessionID(r)
	q := r.URL.Query()

	view, err := h.service.Session(ctx, id)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	if page := q.Get("page"); page != "" {
		if view, err = h.service.Navigate(ctx, id, page); err != nil {
			h.errorHandler.HandleError(w, r, serviceError(err))
			return
		}
	}
	if q.Get("preview") == "toggle" {
		if view, err = h.service.SetPreview(ctx, id, nil); err != nil {
			h.errorHandler.HandleError(w, r, serviceError(err))
			return
		}
	}

	data, err := h.pageData(r, view)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(ctx, "template execution failed",
			slog.String("page", string(view.Page)),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ErrInternalServer)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (h *PageHandler) pageData(r *http.Request, view *services.SessionView) (*PageData, error) {
	ctx := r.Context()
	key := h.service.Defaults()
	data := &PageData{
		Title:   view.Title,
		Version: h.version,
		Session: view,
		Key:     key,
		Error:   view.UploadError,

		UploadField: api.UploadFormField,
	}

	var err error
	switch view.Page {
	case dashboard.PageHome:
		data.Overview, err = h.service.Overview(ctx, key)
	case dashboard.PageTMTI:
		for _, p := range domain.Priorities() {
			var tv *services.TMTIView
			if tv, err = h.service.TMTI(ctx, key, p); err != nil {
				break
			}
			data.TMTI = append(data.TMTI, tv)
		}
	case dashboard.PageCompliance:
		data.Compliance, err = h.service.Compliance(ctx, key)
	case dashboard.PageImpact:
		data.Impact, err = h.service.Impact(ctx, key, view.ID)
	}
	if err != nil {
		return nil, err
	}

	settings := h.service.Settings()
	if view.ShowPreview {
		if data.Preview, err = h.service.Preview(ctx, key, settings.PreviewRows); err != nil {
			return nil, err
		}
	}
	if view.HasUpload() {
		if data.Upload, err = h.service.UploadPreview(ctx, view.ID, settings.PreviewRows); err != nil {
			return nil, serviceError(err)
		}
	}
	return data, nil
}

// formatFloat trims trailing zeros after rounding to prec digits
func formatFloat(v float64, prec int) string {
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
