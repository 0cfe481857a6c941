package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Techmee-Digital/arkane/internal/api/handler"
	"github.com/Techmee-Digital/arkane/internal/lead"
	"github.com/Techmee-Digital/arkane/internal/tabular"
)

// --- Mock Lead Repository ---

type mockLeadRepo struct {
	latestFn func(ctx context.Context, teamID uuid.UUID, emails []string) (map[string]lead.Lead, error)
	insertFn func(ctx context.Context, teamID uuid.UUID, leads []lead.Lead) (int, error)
	searchFn func(ctx context.Context, teamID uuid.UUID, email string) ([]lead.Lead, error)
	filterFn func(ctx context.Context, teamID uuid.UUID, params lead.FilterParams) ([]lead.Lead, error)
	deleteFn func(ctx context.Context, teamID uuid.UUID, ids []uuid.UUID) (int, error)
	updateFn func(ctx context.Context, teamID uuid.UUID, id uuid.UUID, updates map[string]string) error
}

func (m *mockLeadRepo) LatestByEmails(ctx context.Context, teamID uuid.UUID, emails []string) (map[string]lead.Lead, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, teamID, emails)
	}
	return map[string]lead.Lead{}, nil
}

func (m *mockLeadRepo) InsertBatch(ctx context.Context, teamID uuid.UUID, leads []lead.Lead) (int, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, teamID, leads)
	}
	return len(leads), nil
}

func (m *mockLeadRepo) Search(ctx context.Context, teamID uuid.UUID, email string) ([]lead.Lead, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, teamID, email)
	}
	return []lead.Lead{}, nil
}

func (m *mockLeadRepo) Filter(ctx context.Context, teamID uuid.UUID, params lead.FilterParams) ([]lead.Lead, error) {
	if m.filterFn != nil {
		return m.filterFn(ctx, teamID, params)
	}
	return []lead.Lead{}, nil
}

func (m *mockLeadRepo) Delete(ctx context.Context, teamID uuid.UUID, ids []uuid.UUID) (int, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, teamID, ids)
	}
	return 0, nil
}

func (m *mockLeadRepo) UpdateFields(ctx context.Context, teamID uuid.UUID, id uuid.UUID, updates map[string]string) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, teamID, id, updates)
	}
	return nil
}

func sampleLead(teamID uuid.UUID, email string) lead.Lead {
	return lead.Lead{
		ID:         uuid.New(),
		Email:      email,
		Company:    "Acme",
		Quarter:    "Q1",
		Campaign:   "spring",
		SourceFile: "f.xlsx",
		UploadDate: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		TeamID:     teamID,
	}
}

// ===== GET /leads =====

func TestLeadList_PassesNormalizedFilters(t *testing.T) {
	t.Parallel()

	teamID := uuid.New()
	repo := &mockLeadRepo{
		filterFn: func(ctx context.Context, gotTeam uuid.UUID, params lead.FilterParams) ([]lead.Lead, error) {
			assert.Equal(t, teamID, gotTeam)
			assert.Equal(t, "acme", params.Email)
			assert.Equal(t, "corp", params.Company)
			return []lead.Lead{sampleLead(teamID, "a@acme.com")}, nil
		},
	}
	h := handler.NewLeadHandler(repo)

	req, w := makeChiRequest(http.MethodGet, "/leads?email=+ACME+&company=Corp", nil, "/leads", nil)
	req = withTeamIdentity(req, teamID)

	h.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	env := parseEnvelope(t, w)
	data := env["data"].([]interface{})
	require.Len(t, data, 1)
	item := data[0].(map[string]interface{})
	assert.Equal(t, "a@acme.com", item["email"])
	assert.Equal(t, "2025-06-01T12:00:00Z", item["uploadDate"])
}

func TestLeadList_Empty(t *testing.T) {
	t.Parallel()

	h := handler.NewLeadHandler(&mockLeadRepo{})

	req, w := makeChiRequest(http.MethodGet, "/leads", nil, "/leads", nil)
	req = withTeamIdentity(req, uuid.New())

	h.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	env := parseEnvelope(t, w)
	assert.Empty(t, env["data"].([]interface{}))
}

// ===== GET /leads/search =====

func TestLeadSearch_ExactEmail(t *testing.T) {
	t.Parallel()

	teamID := uuid.New()
	repo := &mockLeadRepo{
		searchFn: func(ctx context.Context, gotTeam uuid.UUID, email string) ([]lead.Lead, error) {
			assert.Equal(t, "a@x.com", email, "query is trimmed and lowercased before the lookup")
			return []lead.Lead{sampleLead(teamID, "a@x.com")}, nil
		},
	}
	h := handler.NewLeadHandler(repo)

	req, w := makeChiRequest(http.MethodGet, "/leads/search?email=+A%40X.com+", nil, "/leads/search", nil)
	req = withTeamIdentity(req, teamID)

	h.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	env := parseEnvelope(t, w)
	data := env["data"].([]interface{})
	assert.Len(t, data, 1)
}

func TestLeadSearch_MissingEmail(t *testing.T) {
	t.Parallel()

	h := handler.NewLeadHandler(&mockLeadRepo{})

	req, w := makeChiRequest(http.MethodGet, "/leads/search", nil, "/leads/search", nil)
	req = withTeamIdentity(req, uuid.New())

	h.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := parseEnvelope(t, w)
	errObj := env["error"].(map[string]interface{})
	assert.Equal(t, "MISSING_EMAIL", errObj["code"])
}

// ===== GET /leads/export =====

func TestLeadExport_ReturnsWorkbook(t *testing.T) {
	t.Parallel()

	teamID := uuid.New()
	repo := &mockLeadRepo{
		filterFn: func(ctx context.Context, gotTeam uuid.UUID, params lead.FilterParams) ([]lead.Lead, error) {
			return []lead.Lead{sampleLead(teamID, "a@x.com")}, nil
		},
	}
	h := handler.NewLeadHandler(repo)

	req, w := makeChiRequest(http.MethodGet, "/leads/export", nil, "/leads/export", nil)
	req = withTeamIdentity(req, teamID)

	h.Export(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="leads.xlsx"`, w.Header().Get("Content-Disposition"))

	table, err := tabular.Parse(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "company", "quarter", "campaign", "source_file", "exclusions", "upload_date"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "a@x.com", table.Rows[0][0])
}

// ===== DELETE /leads =====

func TestLeadDelete_Success(t *testing.T) {
	t.Parallel()

	teamID := uuid.New()
	id1, id2 := uuid.New(), uuid.New()
	repo := &mockLeadRepo{
		deleteFn: func(ctx context.Context, gotTeam uuid.UUID, ids []uuid.UUID) (int, error) {
			assert.Equal(t, teamID, gotTeam)
			assert.Equal(t, []uuid.UUID{id1, id2}, ids)
			return 2, nil
		},
	}
	h := handler.NewLeadHandler(repo)

	body, _ := json.Marshal(map[string]interface{}{"ids": []string{id1.String(), id2.String()}})
	req, w := makeChiRequest(http.MethodDelete, "/leads", body, "/leads", nil)
	req = withTeamIdentity(req, teamID)

	h.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	env := parseEnvelope(t, w)
	data := env["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["deleted"])
}

func TestLeadDelete_NoIDs(t *testing.T) {
	t.Parallel()

	h := handler.NewLeadHandler(&mockLeadRepo{})

	body, _ := json.Marshal(map[string]interface{}{"ids": []string{}})
	req, w := makeChiRequest(http.MethodDelete, "/leads", body, "/leads", nil)
	req = withTeamIdentity(req, uuid.New())

	h.Delete(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := parseEnvelope(t, w)
	errObj := env["error"].(map[string]interface{})
	assert.Equal(t, "NO_IDS", errObj["code"])
}

func TestLeadDelete_InvalidID(t *testing.T) {
	t.Parallel()

	h := handler.NewLeadHandler(&mockLeadRepo{})

	body, _ := json.Marshal(map[string]interface{}{"ids": []string{"not-a-uuid"}})
	req, w := makeChiRequest(http.MethodDelete, "/leads", body, "/leads", nil)
	req = withTeamIdentity(req, uuid.New())

	h.Delete(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := parseEnvelope(t, w)
	errObj := env["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_ID", errObj["code"])
}

// ===== PATCH /leads/{id} =====

func TestLeadUpdate_Success(t *testing.T) {
	t.Parallel()

	teamID := uuid.New()
	id := uuid.New()
	repo := &mockLeadRepo{
		updateFn: func(ctx context.Context, gotTeam uuid.UUID, gotID uuid.UUID, updates map[string]string) error {
			assert.Equal(t, id, gotID)
			assert.Equal(t, map[string]string{"email": "new@x.com", "company": "NewCo"}, updates,
				"email is normalized before the update")
			return nil
		},
	}
	h := handler.NewLeadHandler(repo)

	body, _ := json.Marshal(map[string]interface{}{
		"fields": map[string]string{"email": " NEW@X.com ", "company": "NewCo"},
	})
	req, w := makeChiRequest(http.MethodPatch, "/leads/"+id.String(), body, "/leads/{id}", map[string]string{"id": id.String()})
	req = withTeamIdentity(req, teamID)

	h.Update(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestLeadUpdate_NotFound(t *testing.T) {
	t.Parallel()

	repo := &mockLeadRepo{
		updateFn: func(ctx context.Context, teamID uuid.UUID, id uuid.UUID, updates map[string]string) error {
			return lead.ErrLeadNotFound
		},
	}
	h := handler.NewLeadHandler(repo)

	id := uuid.New()
	body, _ := json.Marshal(map[string]interface{}{"fields": map[string]string{"company": "x"}})
	req, w := makeChiRequest(http.MethodPatch, "/leads/"+id.String(), body, "/leads/{id}", map[string]string{"id": id.String()})
	req = withTeamIdentity(req, uuid.New())

	h.Update(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeadUpdate_DisallowedField(t *testing.T) {
	t.Parallel()

	h := handler.NewLeadHandler(&mockLeadRepo{})

	id := uuid.New()
	body, _ := json.Marshal(map[string]interface{}{"fields": map[string]string{"team_id": "oops"}})
	req, w := makeChiRequest(http.MethodPatch, "/leads/"+id.String(), body, "/leads/{id}", map[string]string{"id": id.String()})
	req = withTeamIdentity(req, uuid.New())

	h.Update(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := parseEnvelope(t, w)
	errObj := env["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
}
