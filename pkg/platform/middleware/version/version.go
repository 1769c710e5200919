// Package version provides middleware for API microversion negotiation.
package version

import (
	"encoding/json"
	"net/http"

	id "muster/pkg/domain"
	dErrors "muster/pkg/domain-errors"
	"muster/pkg/requestcontext"
)

// Header carrying the requested microversion, e.g. "clustering 1.14".
const Header = "OpenStack-API-Version"

// Negotiate parses the microversion header, rejects unsupported versions with
// 400, and stamps the negotiated version into the context. The response
// always echoes the negotiated version so clients can detect the default.
//
// Usage:
//
//	r.Route("/v1", func(v1 chi.Router) {
//	    v1.Use(version.Negotiate())
//	    // ... routes
//	})
func Negotiate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, err := id.ParseVersionHeader(r.Header.Get(Header))
			if err != nil {
				writeVersionError(w, http.StatusBadRequest, "bad_request", dErrors.MessageOf(err))
				return
			}
			w.Header().Set(Header, "clustering "+v.String())
			ctx := requestcontext.WithAPIVersion(r.Context(), v)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// versionErrorResponse represents the JSON error response for version-related errors.
type versionErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// writeVersionError writes a JSON error response for version-related errors.
func writeVersionError(w http.ResponseWriter, statusCode int, errCode, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := versionErrorResponse{
		Error:            errCode,
		ErrorDescription: description,
	}
	_ = json.NewEncoder(w).Encode(resp)
}
