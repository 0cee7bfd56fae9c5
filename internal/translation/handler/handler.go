// Package handler exposes the translation and generation endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idbridge/internal/identifier/generator"
	"idbridge/internal/platform/middleware"
	"idbridge/internal/translation"
	dErrors "idbridge/pkg/domain-errors"
	"idbridge/pkg/platform/httputil"
)

// PipelineTokenHeader carries the provenance token; the request body may
// carry it instead for clients that cannot set headers.
const PipelineTokenHeader = "X-Pipeline-Token"

// Service defines the translation operations the handler needs.
type Service interface {
	TechnicalToLegal(ctx context.Context, req translation.TechnicalToLegalRequest) (*translation.Result, error)
	LegalToTechnical(ctx context.Context, req translation.LegalToTechnicalRequest) (*translation.Result, error)
	TranslateBatch(ctx context.Context, req translation.BatchRequest) (*translation.BatchResult, error)
	GenerateHybrid(ctx context.Context, req translation.GenerateRequest) (*translation.GenerateResult, error)
}

// Handler handles translation endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a translation Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the translation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/translate/technical-to-legal", h.handleTechnicalToLegal)
	r.Post("/translate/legal-to-technical", h.handleLegalToTechnical)
	r.Post("/translate/batch", h.handleBatch)
	r.Post("/generate-hybrid", h.handleGenerateHybrid)
}

type technicalToLegalRequest struct {
	TechnicalID  string           `json:"technical_id"`
	Jurisdiction string           `json:"jurisdiction,omitempty"`
	TrustLevel   *int             `json:"trust_level,omitempty"`
	ContentHash  string           `json:"content_hash,omitempty"`
	Beacon       generator.Beacon `json:"beacon,omitempty"`
}

type legalToTechnicalRequest struct {
	LegalID string `json:"legal_id"`
}

type batchRequest struct {
	Direction string   `json:"direction"`
	IDs       []string `json:"ids"`
}

// generateRequest carries the beacon as drand_beacon; beacon is accepted as
// an alias for callers that reuse the translate request shape.
type generateRequest struct {
	ContentHash   string            `json:"content_hash"`
	EntityType    string            `json:"entity_type"`
	Jurisdiction  string            `json:"jurisdiction,omitempty"`
	TrustLevel    *int              `json:"trust_level,omitempty"`
	Sequence      string            `json:"sequence,omitempty"`
	DrandBeacon   *generator.Beacon `json:"drand_beacon,omitempty"`
	Beacon        *generator.Beacon `json:"beacon,omitempty"`
	PipelineToken string            `json:"pipeline_token,omitempty"`
}

func (r generateRequest) beacon() generator.Beacon {
	if r.DrandBeacon != nil {
		return *r.DrandBeacon
	}
	if r.Beacon != nil {
		return *r.Beacon
	}
	return generator.Beacon{}
}

func (h *Handler) handleTechnicalToLegal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req technicalToLegalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.service.TechnicalToLegal(ctx, translation.TechnicalToLegalRequest{
		TechnicalID:  req.TechnicalID,
		Jurisdiction: req.Jurisdiction,
		TrustLevel:   req.TrustLevel,
		ContentHash:  req.ContentHash,
		Beacon:       req.Beacon,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "technical to legal translation failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLegalToTechnical(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req legalToTechnicalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.service.LegalToTechnical(ctx, translation.LegalToTechnicalRequest{
		LegalID: req.LegalID,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "legal to technical translation failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.service.TranslateBatch(ctx, translation.BatchRequest{
		Direction: translation.Direction(req.Direction),
		IDs:       req.IDs,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "batch translation failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGenerateHybrid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	token := r.Header.Get(PipelineTokenHeader)
	if token == "" {
		token = req.PipelineToken
	}

	result, err := h.service.GenerateHybrid(ctx, translation.GenerateRequest{
		ContentHash:   req.ContentHash,
		EntityType:    req.EntityType,
		Jurisdiction:  req.Jurisdiction,
		TrustLevel:    req.TrustLevel,
		Sequence:      req.Sequence,
		Beacon:        req.beacon(),
		PipelineToken: token,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "hybrid generation failed")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// writeServiceError logs by severity and writes the coded response. Known
// domain codes pass through; anything else becomes an opaque internal error.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	requestID := middleware.GetRequestID(ctx)

	switch {
	case dErrors.Is(err, dErrors.CodeBadRequest),
		dErrors.Is(err, dErrors.CodeNotFound),
		dErrors.Is(err, dErrors.CodeConflict),
		dErrors.Is(err, dErrors.CodeUnprocessable),
		dErrors.Is(err, dErrors.CodePipelineViolation):
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
	default:
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
	}
}
