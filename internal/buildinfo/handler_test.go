package buildinfo

import (
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"muster/internal/platform/config"
	authmw "muster/pkg/platform/middleware/auth"
	"muster/pkg/testutil"
)

type staticValidator struct{}

func (staticValidator) ValidateClaims(token string) (*authmw.Claims, error) {
	if token != "valid" {
		return nil, fmt.Errorf("unknown token")
	}
	return &authmw.Claims{User: "alice", Project: "project-a"}, nil
}

func newRouter() chi.Router {
	r := chi.NewRouter()
	build := config.BuildInfo{APIRevision: "1.14", EngineRevision: "2.3"}
	New(build, slog.Default(), staticValidator{}).Register(r)
	return r
}

func TestBuildInfo(t *testing.T) {
	req := testutil.NewRequest(t, http.MethodGet, "/v1/build-info")
	req.Header.Set("Authorization", "Bearer valid")

	rr := testutil.DoRequest(newRouter(), req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body buildInfoResponse
	testutil.DecodeJSON(t, rr, &body)
	require.Equal(t, "1.14", body.BuildInfo.API.Revision)
	require.Equal(t, "2.3", body.BuildInfo.Engine.Revision)
}

func TestBuildInfoRequiresAuth(t *testing.T) {
	rr := testutil.DoRequest(newRouter(), testutil.NewRequest(t, http.MethodGet, "/v1/build-info"))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
