// Package health reports service liveness and dependency status.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"idbridge/pkg/platform/httputil"
	"idbridge/pkg/requestcontext"
)

// Check probes one dependency.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type response struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Version      string            `json:"version"`
	Timestamp    time.Time         `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Handler answers GET /health. The endpoint always returns 200: degraded
// dependencies are reported in the body so load balancers keep routing
// while operators see what broke.
type Handler struct {
	service string
	version string
	checks  []Check
}

// NewHandler builds a health handler with optional dependency checks.
func NewHandler(service, version string, checks ...Check) *Handler {
	return &Handler{service: service, version: version, checks: checks}
}

// Register registers the health route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := response{
		Status:    "healthy",
		Service:   h.service,
		Version:   h.version,
		Timestamp: requestcontext.Now(ctx).UTC(),
	}
	if len(h.checks) > 0 {
		resp.Dependencies = make(map[string]string, len(h.checks))
		for _, check := range h.checks {
			if err := check.Probe(ctx); err != nil {
				resp.Status = "degraded"
				resp.Dependencies[check.Name] = err.Error()
				continue
			}
			resp.Dependencies[check.Name] = "ok"
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
