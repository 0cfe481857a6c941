package handler

import (
	"context"
	"net/http"

	"github.com/Techmee-Digital/arkane/internal/api/middleware"
	"github.com/Techmee-Digital/arkane/internal/api/response"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	db      Pinger
	cache   Pinger
	version string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db, cache Pinger, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		cache:   cache,
		version: version,
	}
}

type healthData struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database bool   `json:"database"`
	Cache    bool   `json:"cache"`
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	data := healthData{
		Status:   "healthy",
		Version:  h.version,
		Database: h.db != nil && h.db.Ping(r.Context()) == nil,
		Cache:    h.cache != nil && h.cache.Ping(r.Context()) == nil,
	}
	if !data.Database || !data.Cache {
		data.Status = "degraded"
	}

	response.Success(w, http.StatusOK, data, requestID)
}
