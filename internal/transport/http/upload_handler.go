package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "gctidash/internal/errors"
	mw "gctidash/internal/middleware"
	api "gctidash/pkg/contracts/api/v1"
)

// multipartOverhead is the allowance for multipart headers on top of the file size
const multipartOverhead = 64 << 10

// UploadHandler accepts real-data uploads for the session
type UploadHandler struct {
	service      DashboardServiceInterface
	maxBytes     int64
	query        *mw.QueryParamValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(service DashboardServiceInterface, maxBytes int64, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		service:      service,
		maxBytes:     maxBytes,
		query:        mw.NewQueryParamValidator(errorHandler),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "upload")),
	}
}

// Routes returns the upload routes
func (h *UploadHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.Upload)
	r.Get("/", h.GetUpload)
	r.Delete("/", h.ClearUpload)
	r.Get("/geo", h.GetGeographic)
	return r
}

// Upload handles POST /api/upload with a multipart "file" field
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	file, header, err := r.FormFile(api.UploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.errorHandler.HandleError(w, r, apierrors.ErrUploadTooLarge)
		case errors.Is(err, http.ErrMissingFile):
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation(api.UploadFormField, "a file is required"))
		default:
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		}
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		h.errorHandler.HandleError(w, r, apierrors.ErrUploadTooLarge)
		return
	}

	result, err := h.service.Upload(r.Context(), SessionID(r), header.Filename, file)
	if err != nil {
		if typ, ok := apierrors.TypeOf(err); ok && typ == apierrors.ErrTypeParsing {
			err = apierrors.UploadParseError(header.Filename, err)
		}
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// GetUpload handles GET /api/upload
func (h *UploadHandler) GetUpload(w http.ResponseWriter, r *http.Request) {
	settings := h.service.Settings()
	limit, ok := h.query.ValidateInt(w, r, api.QueryLimit, 1, settings.MaxPreviewRows, settings.PreviewRows)
	if !ok {
		return
	}

	result, err := h.service.UploadPreview(r.Context(), SessionID(r), limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, result)
}

// ClearUpload handles DELETE /api/upload
func (h *UploadHandler) ClearUpload(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ClearUpload(r.Context(), SessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, view)
}

// GetGeographic handles GET /api/upload/geo
func (h *UploadHandler) GetGeographic(w http.ResponseWriter, r *http.Request) {
	geo, err := h.service.Geographic(r.Context(), SessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, geo)
}
