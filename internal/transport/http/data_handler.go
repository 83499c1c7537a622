package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "rosterkit/internal/errors"
	"rosterkit/internal/services"
)

// DataHandler handles roster data HTTP requests with RFC 7807 compliance
type DataHandler struct {
	service      DataServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDataHandler creates a new data handler with RFC 7807 error handling
func NewDataHandler(service DataServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	return &DataHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "data_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the data routes with proper Chi patterns
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Use render for consistent JSON responses
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// Resource routes following REST patterns
	r.Get("/artifacts", h.GetArtifacts)
	r.Get("/records", h.GetRecords)
	r.Get("/roster", h.GetRoster)
	r.Get("/stats", h.GetStats)
	r.Get("/summary", h.GetSummary)

	// Download routes
	r.Route("/download/{type}/{filename}", func(r chi.Router) {
		r.Use(h.DownloadCtx) // Validate download parameters
		r.Get("/", h.DownloadFile)
	})

	// Output download route - supports nested paths such as
	// visualizations/age_distribution.png
	r.Get("/download/outputs/{filepath:.*}", h.DownloadOutputFile)

	return r
}

// DownloadCtx middleware validates download parameters
func (h *DataHandler) DownloadCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fileType := chi.URLParam(r, "type")
		filename := chi.URLParam(r, "filename")

		// Validate file type against the categories the data service serves
		validTypes := map[string]bool{
			services.CategoryCleaned: true,
			services.CategoryChart:   true,
			"output":                 true,
			"outputs":                true,
			"charts":                 true,
			"visualizations":         true,
		}

		if !validTypes[fileType] {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("type", fmt.Sprintf("Invalid file type: %s", fileType)))
			return
		}

		if filename == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("filename", "Filename is required"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetArtifacts handles GET /api/data/artifacts with RFC 7807 errors
func (h *DataHandler) GetArtifacts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching artifacts",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	artifacts, err := h.service.GetArtifacts(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get artifacts",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// Success response
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   artifacts,
		"count":  len(artifacts),
	})
}

// GetRecords handles GET /api/data/records with pagination
func (h *DataHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	// Parse limit
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		limitStr = "50"
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 1000 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("limit", "Limit must be a number between 1 and 1000"))
		return
	}

	// Parse offset
	offsetStr := r.URL.Query().Get("offset")
	if offsetStr == "" {
		offsetStr = "0"
	}

	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("offset", "Offset must be a non-negative number"))
		return
	}

	h.logger.InfoContext(r.Context(), "fetching cleaned records",
		slog.String("request_id", reqID),
		slog.Int("limit", limit),
		slog.Int("offset", offset),
	)

	records, total, err := h.service.GetCleanedRecords(r.Context(), limit, offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get cleaned records",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   records,
		"count":  len(records),
		"total":  total,
		"params": map[string]interface{}{
			"limit":  limit,
			"offset": offset,
		},
	})
}

// GetRoster handles GET /api/data/roster with typed employee records
func (h *DataHandler) GetRoster(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching roster",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	records, err := h.service.GetEmployeeRecords(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get roster",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   records,
		"count":  len(records),
	})
}

// GetStats handles GET /api/data/stats with descriptive statistics
func (h *DataHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching roster statistics",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	stats, err := h.service.GetRosterStats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get roster statistics",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   stats,
	})
}

// GetSummary handles GET /api/data/summary with the last cleaning summary
func (h *DataHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.InfoContext(r.Context(), "fetching cleaning summary",
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	summary, err := h.service.GetSummary(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to get cleaning summary",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}

// DownloadFile handles GET /api/data/download/{type}/{filename} with RFC 7807 errors
func (h *DataHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	fileType := chi.URLParam(r, "type")
	filename := chi.URLParam(r, "filename")

	h.logger.InfoContext(r.Context(), "downloading file",
		slog.String("request_id", reqID),
		slog.String("file_type", fileType),
		slog.String("filename", filename),
	)

	// Let service handle the download (it writes directly to response)
	if err := h.service.DownloadFile(r.Context(), w, r, fileType, filename); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to download file",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("file_type", fileType),
			slog.String("filename", filename),
		)

		// Only handle error if response not yet written
		if !isResponseWritten(w) {
			h.handleDownloadError(w, r, err, fileType, filename)
		}
	}
}

// DownloadOutputFile handles GET /api/data/download/outputs/{filepath} with nested path support
func (h *DataHandler) DownloadOutputFile(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	filepath := chi.URLParam(r, "filepath")

	// URL decode the filepath to handle encoded slashes (%2F -> /)
	decodedPath, err := url.QueryUnescape(filepath)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to decode filepath",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("filepath", filepath),
		)
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest,
			"INVALID_PATH",
			"Invalid file path encoding",
			map[string]interface{}{
				"filepath": filepath,
				"error":    err.Error(),
			},
		))
		return
	}

	h.logger.InfoContext(r.Context(), "downloading output file",
		slog.String("request_id", reqID),
		slog.String("filepath", filepath),
		slog.String("decoded_path", decodedPath),
	)

	if err := h.service.DownloadFile(r.Context(), w, r, "outputs", decodedPath); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to download output file",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
			slog.String("decoded_path", decodedPath),
		)

		// Only handle error if response not yet written
		if !isResponseWritten(w) {
			h.handleDownloadError(w, r, err, "outputs", decodedPath)
		}
	}
}

// handleDownloadError maps download failures onto RFC 7807 problems
func (h *DataHandler) handleDownloadError(w http.ResponseWriter, r *http.Request, err error, fileType, filename string) {
	if errors.Is(err, services.ErrFileNotFound) {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusNotFound,
			"FILE_NOT_FOUND",
			fmt.Sprintf("File '%s' not found", filename),
			map[string]interface{}{
				"type":     fileType,
				"filename": filename,
			},
		))
		return
	}

	if errors.Is(err, services.ErrInvalidFileType) {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest,
			"INVALID_FILE_TYPE",
			fmt.Sprintf("Invalid file type: %s", fileType),
			map[string]interface{}{
				"type":     fileType,
				"filename": filename,
			},
		))
		return
	}

	h.errorHandler.HandleError(w, r, err)
}

// isResponseWritten checks if response has already been written
func isResponseWritten(w http.ResponseWriter) bool {
	// Check if writer is a wrapped response writer with status
	if ww, ok := w.(interface{ Status() int }); ok {
		return ww.Status() != 0
	}
	return false
}
