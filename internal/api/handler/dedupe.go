package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Techmee-Digital/arkane/internal/api/middleware"
	"github.com/Techmee-Digital/arkane/internal/api/response"
	"github.com/Techmee-Digital/arkane/internal/api/validation"
	"github.com/Techmee-Digital/arkane/internal/dedupe"
)

// DedupeService is the pipeline surface the handler consumes.
type DedupeService interface {
	RunDedupe(ctx context.Context, teamID uuid.UUID, files []dedupe.UploadedFile) (*dedupe.Result, error)
	RefreshFromToken(ctx context.Context, teamID uuid.UUID, token string) (*dedupe.Classification, error)
	Commit(ctx context.Context, teamID uuid.UUID, token string, mode dedupe.Mode) (int, error)
	MergeFiles(files []dedupe.UploadedFile) (*dedupe.MergeResult, error)
}

type dedupeResponse struct {
	Token    string                 `json:"token"`
	Rows     []dedupe.ClassifiedRow `json:"rows"`
	Columns  []string               `json:"columns,omitempty"`
	Summary  dedupe.Summary         `json:"summary"`
	Warnings []string               `json:"warnings,omitempty"`
}

type commitRequest struct {
	Mode string `json:"mode"`
}

type commitResponse struct {
	RowsSaved int `json:"rowsSaved"`
}

// DedupeHandler handles upload, refresh, commit and merge endpoints.
type DedupeHandler struct {
	service        DedupeService
	maxUploadBytes int64
}

// NewDedupeHandler creates a new DedupeHandler.
func NewDedupeHandler(service DedupeService, maxUploadBytes int64) *DedupeHandler {
	return &DedupeHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// readUploads extracts the files of a multipart request under the given form
// field. Returns false if a response has already been written.
func (h *DedupeHandler) readUploads(w http.ResponseWriter, r *http.Request, field string) ([]dedupe.UploadedFile, bool) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Err(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Upload exceeds the size limit", requestID)
			return nil, false
		}
		response.Err(w, http.StatusBadRequest, "INVALID_MULTIPART", "Request must be valid multipart form data", requestID)
		return nil, false
	}

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		response.Err(w, http.StatusBadRequest, "NO_FILES", "Select at least one spreadsheet file", requestID)
		return nil, false
	}

	files := make([]dedupe.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_MULTIPART", "Could not read uploaded file", requestID)
			return nil, false
		}
		defer f.Close()
		files = append(files, dedupe.UploadedFile{Name: fh.Filename, Content: f})
	}

	return files, true
}

// Upload handles POST /dedupe.
func (h *DedupeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	files, ok := h.readUploads(w, r, "files")
	if !ok {
		return
	}

	result, err := h.service.RunDedupe(r.Context(), *identity.TeamID, files)
	if err != nil {
		if errors.Is(err, dedupe.ErrNoValidFiles) {
			response.Err(w, http.StatusBadRequest, "NO_VALID_FILES", "No valid spreadsheet files uploaded", requestID)
			return
		}
		slog.Error("dedupe upload failed", "error", err, "team", identity.TeamID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process upload", requestID)
		return
	}

	response.Success(w, http.StatusOK, dedupeResponse{
		Token:    result.Token,
		Rows:     result.Classification.Rows,
		Columns:  result.Classification.Columns,
		Summary:  result.Classification.Summary,
		Warnings: result.Warnings,
	}, requestID)
}

// Refresh handles GET /dedupe/{token}.
func (h *DedupeHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())
	token := chi.URLParam(r, "token")

	classification, err := h.service.RefreshFromToken(r.Context(), *identity.TeamID, token)
	if err != nil {
		if errors.Is(err, dedupe.ErrStaleToken) {
			response.Err(w, http.StatusNotFound, "STALE_TOKEN", "No data to show; re-run the check", requestID)
			return
		}
		slog.Error("dedupe refresh failed", "error", err, "token", token)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to refresh results", requestID)
		return
	}

	response.Success(w, http.StatusOK, dedupeResponse{
		Token:   token,
		Rows:    classification.Rows,
		Columns: classification.Columns,
		Summary: classification.Summary,
	}, requestID)
}

// Commit handles POST /dedupe/{token}/commit.
func (h *DedupeHandler) Commit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())
	token := chi.URLParam(r, "token")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateCommitRequest(validation.CommitRequest{Mode: req.Mode})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	saved, err := h.service.Commit(r.Context(), *identity.TeamID, token, dedupe.Mode(req.Mode))
	if err != nil {
		if errors.Is(err, dedupe.ErrStaleToken) {
			response.Err(w, http.StatusNotFound, "STALE_TOKEN", "No data to save; re-run the check", requestID)
			return
		}
		slog.Error("dedupe commit failed", "error", err, "token", token, "team", identity.TeamID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save rows", requestID)
		return
	}

	response.Success(w, http.StatusOK, commitResponse{RowsSaved: saved}, requestID)
}

// Merge handles POST /merge: unions the uploaded spreadsheets into one
// workbook without any deduplication and returns it as a download.
func (h *DedupeHandler) Merge(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	files, ok := h.readUploads(w, r, "files")
	if !ok {
		return
	}

	result, err := h.service.MergeFiles(files)
	if err != nil {
		if errors.Is(err, dedupe.ErrNoValidFiles) {
			response.Err(w, http.StatusBadRequest, "NO_VALID_FILES", "No valid spreadsheet files uploaded", requestID)
			return
		}
		slog.Error("merge failed", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to merge files", requestID)
		return
	}

	response.Attachment(w, "merged.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		result.File.Bytes())
}
