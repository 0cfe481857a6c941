package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Techmee-Digital/arkane/internal/api/handler"
	"github.com/Techmee-Digital/arkane/internal/auth"
	"github.com/Techmee-Digital/arkane/internal/team"
)

// --- Mock User Repository ---

type mockUserRepo struct {
	createFn   func(ctx context.Context, u *auth.User) error
	getByIDFn  func(ctx context.Context, id uuid.UUID) (*auth.User, error)
	findFn     func(ctx context.Context, prefix string) ([]auth.User, error)
	listFn     func(ctx context.Context) ([]auth.User, error)
	revokeFn   func(ctx context.Context, id uuid.UUID) error
	countAllFn func(ctx context.Context) (int, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u *auth.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now().UTC()
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, auth.ErrUserNotFound
}

func (m *mockUserRepo) FindByPrefix(ctx context.Context, prefix string) ([]auth.User, error) {
	if m.findFn != nil {
		return m.findFn(ctx, prefix)
	}
	return []auth.User{}, nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]auth.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []auth.User{}, nil
}

func (m *mockUserRepo) Revoke(ctx context.Context, id uuid.UUID) error {
	if m.revokeFn != nil {
		return m.revokeFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) CountAll(ctx context.Context) (int, error) {
	if m.countAllFn != nil {
		return m.countAllFn(ctx)
	}
	return 0, nil
}

func newUserHandler(userRepo auth.UserRepository, teamRepo team.Repository) *handler.UserHandler {
	svc := auth.NewService(userRepo, teamRepo, 4)
	return handler.NewUserHandler(svc, userRepo, teamRepo)
}

// ===== POST /users =====

func TestUserCreate_Success(t *testing.T) {
	t.Parallel()

	teamID := uuid.New()
	teamRepo := &mockTeamRepo{
		getByIDFn: func(ctx context.Context, id uuid.UUID) (*team.Team, error) {
			tm := sampleTeam(teamID)
			tm.Name = "sales"
			return &tm, nil
		},
	}
	h := newUserHandler(&mockUserRepo{}, teamRepo)

	body, _ := json.Marshal(map[string]interface{}{
		"name":   "alice",
		"teamId": teamID.String(),
	})
	req, w := makeChiRequest(http.MethodPost, "/users", body, "/users", nil)

	h.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	env := parseEnvelope(t, w)
	data := env["data"].(map[string]interface{})
	assert.Equal(t, "alice", data["name"])
	assert.Equal(t, "sales", data["teamName"])
	assert.True(t, strings.HasPrefix(data["apiKey"].(string), "ark_"),
		"raw key is returned exactly once, at creation")
}

func TestUserCreate_ValidationError(t *testing.T) {
	t.Parallel()

	h := newUserHandler(&mockUserRepo{}, &mockTeamRepo{})

	body, _ := json.Marshal(map[string]interface{}{
		"name":   "alice",
		"teamId": "not-a-uuid",
	})
	req, w := makeChiRequest(http.MethodPost, "/users", body, "/users", nil)

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := parseEnvelope(t, w)
	errObj := env["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
}

func TestUserCreate_TeamNotFound(t *testing.T) {
	t.Parallel()

	h := newUserHandler(&mockUserRepo{}, &mockTeamRepo{})

	body, _ := json.Marshal(map[string]interface{}{
		"name":   "alice",
		"teamId": uuid.New().String(),
	})
	req, w := makeChiRequest(http.MethodPost, "/users", body, "/users", nil)

	h.Create(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ===== GET /users =====

func TestUserList_IncludesTeamAndRevocation(t *testing.T) {
	t.Parallel()

	teamID := uuid.New()
	teamName := "sales"
	revokedAt := time.Now().UTC()
	userRepo := &mockUserRepo{
		listFn: func(ctx context.Context) ([]auth.User, error) {
			return []auth.User{
				{
					ID: uuid.New(), Name: "member", TeamID: &teamID, TeamName: &teamName,
					ApiKeyPrefix: "ark_aaaa", CreatedAt: time.Now().UTC(),
				},
				{
					ID: uuid.New(), Name: "gone", TeamID: &teamID, TeamName: &teamName,
					ApiKeyPrefix: "ark_bbbb", CreatedAt: time.Now().UTC(), RevokedAt: &revokedAt,
				},
			}, nil
		},
	}
	h := newUserHandler(userRepo, &mockTeamRepo{})

	req, w := makeChiRequest(http.MethodGet, "/users", nil, "/users", nil)

	h.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	env := parseEnvelope(t, w)
	data := env["data"].([]interface{})
	assert.Len(t, data, 2)

	first := data[0].(map[string]interface{})
	assert.Equal(t, "sales", first["teamName"])
	assert.Nil(t, first["revokedAt"])
	assert.NotContains(t, first, "apiKey", "raw keys never appear in listings")

	second := data[1].(map[string]interface{})
	assert.NotEmpty(t, second["revokedAt"])
}

// ===== DELETE /users/{id} =====

func TestUserDelete_Success(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	teamID := uuid.New()
	userRepo := &mockUserRepo{
		getByIDFn: func(ctx context.Context, got uuid.UUID) (*auth.User, error) {
			return &auth.User{ID: got, Name: "victim", TeamID: &teamID}, nil
		},
	}
	h := newUserHandler(userRepo, &mockTeamRepo{})

	req, w := makeChiRequest(http.MethodDelete, "/users/"+id.String(), nil, "/users/{id}", map[string]string{"id": id.String()})

	h.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUserDelete_SuperuserForbidden(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	userRepo := &mockUserRepo{
		getByIDFn: func(ctx context.Context, got uuid.UUID) (*auth.User, error) {
			return &auth.User{ID: got, Name: "admin", IsSuperuser: true}, nil
		},
	}
	h := newUserHandler(userRepo, &mockTeamRepo{})

	req, w := makeChiRequest(http.MethodDelete, "/users/"+id.String(), nil, "/users/{id}", map[string]string{"id": id.String()})

	h.Delete(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUserDelete_AlreadyRevokedIsIdempotent(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	teamID := uuid.New()
	userRepo := &mockUserRepo{
		getByIDFn: func(ctx context.Context, got uuid.UUID) (*auth.User, error) {
			return &auth.User{ID: got, Name: "victim", TeamID: &teamID}, nil
		},
		revokeFn: func(ctx context.Context, got uuid.UUID) error {
			return auth.ErrUserRevoked
		},
	}
	h := newUserHandler(userRepo, &mockTeamRepo{})

	req, w := makeChiRequest(http.MethodDelete, "/users/"+id.String(), nil, "/users/{id}", map[string]string{"id": id.String()})

	h.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUserDelete_NotFound(t *testing.T) {
	t.Parallel()

	h := newUserHandler(&mockUserRepo{}, &mockTeamRepo{})

	id := uuid.New()
	req, w := makeChiRequest(http.MethodDelete, "/users/"+id.String(), nil, "/users/{id}", map[string]string{"id": id.String()})

	h.Delete(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
