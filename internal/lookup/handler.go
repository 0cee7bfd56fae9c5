package lookup

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idbridge/internal/platform/middleware"
	dErrors "idbridge/pkg/domain-errors"
	"idbridge/pkg/platform/httputil"
)

// Handler exposes GET /registry/lookup.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates a lookup Handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the lookup route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/registry/lookup", h.handleLookup)
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind, err := ParseKind(r.URL.Query().Get("type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entry, err := h.service.Lookup(ctx, kind, r.URL.Query().Get("id"))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "registry lookup failed",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}
