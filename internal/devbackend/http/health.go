package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/authsession/internal/devbackend/service"
	"github.com/aussiebroadwan/authsession/pkg/httpx"
)

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status  string         `json:"status"`
	Uptime  string         `json:"uptime"`
	Version string         `json:"version"`
	Stats   *service.Stats `json:"stats,omitempty"`
}

// LivezHandler godoc
//
//	@Summary		Health Check Endpoint
//	@Description	Liveness probe returning uptime and version. Always 200 while the process runs.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe with record counts of the in-memory backend
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"status, uptime, version, stats"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, backend *service.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := backend.Stats()
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Stats:   &stats,
		})
	}
}
