package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"muster/pkg/requestcontext"
)

// Claims is what the middleware needs from a validated token: who is calling
// and which project scopes their queries.
type Claims struct {
	User    string
	Project string
	Admin   bool
}

// TokenValidator validates a bearer token and extracts claims.
type TokenValidator interface {
	ValidateClaims(tokenString string) (*Claims, error)
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + errCode + `","error_description":"` + errDesc + `"}`))
}

// RequireAuth rejects requests without a valid bearer token and stamps the
// caller's project, user and admin role into the request context. Project
// scoping downstream depends on these values never coming from client input.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateClaims(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithUserID(ctx, claims.User)
			ctx = requestcontext.WithProject(ctx, claims.Project)
			ctx = requestcontext.WithAdmin(ctx, claims.Admin)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
