package middleware

import (
	"net/http"

	"github.com/Techmee-Digital/arkane/internal/api/response"
)

// RequireSuperuser returns middleware that rejects non-superuser identities with 403.
func RequireSuperuser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key is required", requestID)
				return
			}

			if !identity.IsSuperuser {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Superuser access required", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireTeam returns middleware that rejects identities without a team.
// Lead and dedupe operations are tenant-scoped; the superuser has no team
// and therefore no lead store of its own.
func RequireTeam() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			identity := GetIdentity(r.Context())
			if identity == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key is required", requestID)
				return
			}

			if identity.TeamID == nil {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "A team-scoped API key is required", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
