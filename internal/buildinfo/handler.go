// Package buildinfo serves the static build metadata endpoint.
package buildinfo

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"muster/internal/platform/config"
	"muster/pkg/platform/httputil"
	authmw "muster/pkg/platform/middleware/auth"
	versionmw "muster/pkg/platform/middleware/version"
)

type revision struct {
	Revision string `json:"revision"`
}

type buildInfoResponse struct {
	BuildInfo struct {
		API    revision `json:"api"`
		Engine revision `json:"engine"`
	} `json:"build_info"`
}

// Handler serves GET /v1/build-info.
type Handler struct {
	logger    *slog.Logger
	build     config.BuildInfo
	validator authmw.TokenValidator
}

func New(build config.BuildInfo, logger *slog.Logger, validator authmw.TokenValidator) *Handler {
	return &Handler{logger: logger, build: build, validator: validator}
}

// Register registers the build-info route with the chi router.
func (h *Handler) Register(r chi.Router) {
	infoRouter := chi.NewRouter()
	infoRouter.Use(versionmw.Negotiate())
	infoRouter.Use(authmw.RequireAuth(h.validator, h.logger))
	infoRouter.Get("/", h.handleShow)

	r.Mount("/v1/build-info", infoRouter)
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	var resp buildInfoResponse
	resp.BuildInfo.API = revision{Revision: h.build.APIRevision}
	resp.BuildInfo.Engine = revision{Revision: h.build.EngineRevision}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
