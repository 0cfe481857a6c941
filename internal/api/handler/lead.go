package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Techmee-Digital/arkane/internal/api/middleware"
	"github.com/Techmee-Digital/arkane/internal/api/response"
	"github.com/Techmee-Digital/arkane/internal/api/validation"
	"github.com/Techmee-Digital/arkane/internal/lead"
	"github.com/Techmee-Digital/arkane/internal/tabular"
)

type leadResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Company    string `json:"company"`
	Quarter    string `json:"quarter"`
	Campaign   string `json:"campaign"`
	SourceFile string `json:"sourceFile"`
	Exclusions string `json:"exclusions"`
	UploadDate string `json:"uploadDate"`
}

func toLeadResponse(l *lead.Lead) leadResponse {
	return leadResponse{
		ID:         l.ID.String(),
		Email:      l.Email,
		Company:    l.Company,
		Quarter:    l.Quarter,
		Campaign:   l.Campaign,
		SourceFile: l.SourceFile,
		Exclusions: l.Exclusions,
		UploadDate: l.UploadDate.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

type deleteLeadsRequest struct {
	IDs []string `json:"ids"`
}

type deleteLeadsResponse struct {
	Deleted int `json:"deleted"`
}

type updateLeadRequest struct {
	Fields map[string]string `json:"fields"`
}

// LeadHandler handles stored-lead endpoints: filtering, exact search,
// export, deletion and field updates. Every operation is scoped to the
// authenticated identity's team.
type LeadHandler struct {
	repo lead.Repository
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(repo lead.Repository) *LeadHandler {
	return &LeadHandler{repo: repo}
}

// normalizeQuery mirrors row normalization: trim and lowercase.
func normalizeQuery(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// List handles GET /leads with optional email/company substring filters.
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	params := lead.FilterParams{
		Email:   normalizeQuery(r.URL.Query().Get("email")),
		Company: normalizeQuery(r.URL.Query().Get("company")),
	}

	leads, err := h.repo.Filter(r.Context(), *identity.TeamID, params)
	if err != nil {
		slog.Error("failed to filter leads", "error", err, "team", identity.TeamID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list leads", requestID)
		return
	}

	items := make([]leadResponse, 0, len(leads))
	for i := range leads {
		items = append(items, toLeadResponse(&leads[i]))
	}

	response.Success(w, http.StatusOK, items, requestID)
}

// Search handles GET /leads/search?email= with an exact (normalized) match.
func (h *LeadHandler) Search(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	email := normalizeQuery(r.URL.Query().Get("email"))
	if email == "" {
		response.Err(w, http.StatusBadRequest, "MISSING_EMAIL", "email query parameter is required", requestID)
		return
	}

	leads, err := h.repo.Search(r.Context(), *identity.TeamID, email)
	if err != nil {
		slog.Error("failed to search leads", "error", err, "team", identity.TeamID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to search leads", requestID)
		return
	}

	items := make([]leadResponse, 0, len(leads))
	for i := range leads {
		items = append(items, toLeadResponse(&leads[i]))
	}

	response.Success(w, http.StatusOK, items, requestID)
}

var exportHeaders = []string{"email", "company", "quarter", "campaign", "source_file", "exclusions", "upload_date"}

// Export handles GET /leads/export: the filtered subset as an xlsx download.
func (h *LeadHandler) Export(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	params := lead.FilterParams{
		Email:   normalizeQuery(r.URL.Query().Get("email")),
		Company: normalizeQuery(r.URL.Query().Get("company")),
	}

	leads, err := h.repo.Filter(r.Context(), *identity.TeamID, params)
	if err != nil {
		slog.Error("failed to export leads", "error", err, "team", identity.TeamID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to export leads", requestID)
		return
	}

	rows := make([][]string, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, []string{
			l.Email, l.Company, l.Quarter, l.Campaign,
			l.SourceFile, l.Exclusions,
			l.UploadDate.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	file, err := tabular.Write(exportHeaders, rows)
	if err != nil {
		slog.Error("failed to render export", "error", err, "team", identity.TeamID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to export leads", requestID)
		return
	}

	response.Attachment(w, "leads.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		file.Bytes())
}

// Delete handles DELETE /leads with a JSON list of lead IDs.
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req deleteLeadsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	if len(req.IDs) == 0 {
		response.Err(w, http.StatusBadRequest, "NO_IDS", "ids must contain at least one lead ID", requestID)
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, s := range req.IDs {
		id, err := uuid.Parse(s)
		if err != nil {
			response.Err(w, http.StatusBadRequest, "INVALID_ID", "ids must be valid UUIDs", requestID)
			return
		}
		ids = append(ids, id)
	}

	deleted, err := h.repo.Delete(r.Context(), *identity.TeamID, ids)
	if err != nil {
		slog.Error("failed to delete leads", "error", err, "team", identity.TeamID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete leads", requestID)
		return
	}

	response.Success(w, http.StatusOK, deleteLeadsResponse{Deleted: deleted}, requestID)
}

// Update handles PATCH /leads/{id}.
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	identity := middleware.GetIdentity(r.Context())

	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req updateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateUpdateLeadRequest(validation.UpdateLeadRequest{Fields: req.Fields})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	if email, ok := req.Fields["email"]; ok {
		req.Fields["email"] = normalizeQuery(email)
	}

	if err := h.repo.UpdateFields(r.Context(), *identity.TeamID, id, req.Fields); err != nil {
		if errors.Is(err, lead.ErrLeadNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Lead not found", requestID)
			return
		}
		slog.Error("failed to update lead", "error", err, "id", id, "team", identity.TeamID)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update lead", requestID)
		return
	}

	response.NoContent(w)
}
