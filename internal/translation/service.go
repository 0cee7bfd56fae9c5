// Package translation orchestrates single and batch translate/lookup
// requests and enforces the pipeline-provenance gate on generation.
package translation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"idbridge/internal/audit"
	"idbridge/internal/classify"
	"idbridge/internal/identifier/codec"
	"idbridge/internal/identifier/generator"
	"idbridge/internal/mapping"
	"idbridge/internal/platform/metrics"
	"idbridge/internal/translation/provenance"
	dErrors "idbridge/pkg/domain-errors"
	"idbridge/pkg/platform/sentinel"
)

// Direction selects which way a translation runs.
type Direction string

const (
	DirectionTechnicalToLegal Direction = "technical-to-legal"
	DirectionLegalToTechnical Direction = "legal-to-technical"
)

// ParseDirection validates a raw direction string.
func ParseDirection(raw string) (Direction, error) {
	switch Direction(raw) {
	case DirectionTechnicalToLegal, DirectionLegalToTechnical:
		return Direction(raw), nil
	}
	return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown direction %q", raw)
}

// Translation sources reported to callers.
const (
	SourceExistingMapping = "existing_mapping"
	SourceGenerated       = "generated"
)

const maxSequenceAttempts = 5

// TechnicalToLegalRequest translates an existing technical id. Jurisdiction
// and trust level only matter when no stored mapping exists and the
// counterpart has to be derived; content hash and beacon, when supplied,
// bind the derived checksum the same way generation would.
type TechnicalToLegalRequest struct {
	TechnicalID  string
	Jurisdiction string
	TrustLevel   *int
	ContentHash  string
	Beacon       generator.Beacon
}

// LegalToTechnicalRequest translates an existing legal id.
type LegalToTechnicalRequest struct {
	LegalID string
}

// Result is the outcome of one translation.
type Result struct {
	TechnicalID  string        `json:"technical_id"`
	LegalID      string        `json:"legal_id"`
	EntityType   classify.Type `json:"entity_type"`
	Jurisdiction string        `json:"jurisdiction"`
	TrustLevel   int           `json:"trust_level"`
	Source       string        `json:"source"`
}

// GenerateRequest mints a new hybrid identifier pair. EntityType is an
// entity reference resolved through the classifier (the registry seeds the
// six type names onto themselves, so a bare type name resolves directly).
type GenerateRequest struct {
	ContentHash   string
	EntityType    string
	Jurisdiction  string
	TrustLevel    *int
	Sequence      string
	Beacon        generator.Beacon
	PipelineToken string
}

// GenerateResult is the outcome of one generation.
type GenerateResult struct {
	TechnicalID      string                  `json:"technical_id"`
	LegalID          string                  `json:"legal_id"`
	Classification   classify.Classification `json:"entity_classification"`
	Jurisdiction     string                  `json:"jurisdiction"`
	TrustLevel       int                     `json:"trust_level"`
	Anchored         bool                    `json:"anchored"`
	PipelineEnforced bool                    `json:"pipeline_enforced"`
}

// Service wires the classifier, generator, checksum engine, mapping store
// and provenance gate into the request pipeline:
// Received -> ProvenanceChecked -> {Classified} -> Translated/Generated ->
// Persisted -> Responded, with Rejected as the short-circuit terminal.
type Service struct {
	store      mapping.Store
	classifier *classify.Service
	gate       provenance.Verifier

	auditEmitter *audit.Emitter
	metrics      *metrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer

	defaultJurisdiction string
	defaultTrustLevel   int
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithAudit attaches an audit emitter.
func WithAudit(emitter *audit.Emitter) Option {
	return func(s *Service) { s.auditEmitter = emitter }
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDefaults overrides the fallback jurisdiction and trust level.
func WithDefaults(jurisdiction string, trustLevel int) Option {
	return func(s *Service) {
		s.defaultJurisdiction = jurisdiction
		s.defaultTrustLevel = trustLevel
	}
}

// New builds the translation service.
func New(store mapping.Store, classifier *classify.Service, gate provenance.Verifier, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:               store,
		classifier:          classifier,
		gate:                gate,
		logger:              logger,
		tracer:              otel.Tracer("idbridge/translation"),
		defaultJurisdiction: "USA",
		defaultTrustLevel:   3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TechnicalToLegal resolves the legal counterpart of a technical id. A
// stored mapping wins; otherwise the counterpart is derived by re-running
// the generator over the decomposed fields, which is a fresh computation
// and is not persisted.
func (s *Service) TechnicalToLegal(ctx context.Context, req TechnicalToLegalRequest) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "idbridge.translate.technical_to_legal")
	defer span.End()
	defer s.observeTranslateDuration(time.Now())

	tech, err := codec.ParseTechnical(req.TechnicalID)
	if err != nil {
		return nil, err
	}

	record, err := s.store.FindByTechnicalID(ctx, req.TechnicalID)
	switch {
	case err == nil:
		s.countTranslation(DirectionTechnicalToLegal, SourceExistingMapping)
		span.SetAttributes(attribute.String("source", SourceExistingMapping))
		result := resultFromRecord(record, SourceExistingMapping)
		s.emitTranslated(ctx, result, DirectionTechnicalToLegal)
		return result, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "mapping lookup failed")
	}

	// No stored mapping: derive the counterpart from the decomposed fields.
	entityType, err := generator.TypeForNamespace(tech.Namespace)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeNotFound,
			"entity %q not found in registry; namespace %q is not mapped", req.TechnicalID, tech.Namespace)
	}

	jurisdiction := s.jurisdictionOrDefault(req.Jurisdiction)
	trustLevel := s.trustOrDefault(req.TrustLevel)

	pair, err := generator.Generate(ctx, generator.Input{
		Classification: classify.Classification{Type: entityType},
		Jurisdiction:   jurisdiction,
		TrustLevel:     trustLevel,
		ContentHash:    req.ContentHash,
		Beacon:         req.Beacon,
		Sequence:       tech.Sequence,
		YearMonth:      tech.YearMonth,
	})
	if err != nil {
		return nil, err
	}

	s.countTranslation(DirectionTechnicalToLegal, SourceGenerated)
	span.SetAttributes(attribute.String("source", SourceGenerated))
	result := &Result{
		TechnicalID:  req.TechnicalID,
		LegalID:      pair.LegalID,
		EntityType:   entityType,
		Jurisdiction: jurisdiction,
		TrustLevel:   trustLevel,
		Source:       SourceGenerated,
	}
	s.emitTranslated(ctx, result, DirectionTechnicalToLegal)
	return result, nil
}

// LegalToTechnical resolves the technical counterpart of a legal id. Only
// stored mappings can answer: the reverse type table is lossy, so a derived
// technical id would be a guess, and a well-formed but never-generated
// legal id reports not found.
func (s *Service) LegalToTechnical(ctx context.Context, req LegalToTechnicalRequest) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "idbridge.translate.legal_to_technical")
	defer span.End()
	defer s.observeTranslateDuration(time.Now())

	if _, err := codec.ParseLegal(req.LegalID); err != nil {
		return nil, err
	}

	record, err := s.store.FindByLegalID(ctx, req.LegalID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound,
			"legal id %q not found in registry", req.LegalID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "mapping lookup failed")
	}

	s.countTranslation(DirectionLegalToTechnical, SourceExistingMapping)
	span.SetAttributes(attribute.String("source", SourceExistingMapping))
	result := resultFromRecord(record, SourceExistingMapping)
	s.emitTranslated(ctx, result, DirectionLegalToTechnical)
	return result, nil
}

// GenerateHybrid mints and persists a new identifier pair. The provenance
// gate runs first; a rejected call never reaches the classifier or the
// store.
func (s *Service) GenerateHybrid(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	ctx, span := s.tracer.Start(ctx, "idbridge.generate_hybrid")
	defer span.End()

	if _, err := s.gate.Verify(ctx, req.PipelineToken); err != nil {
		s.countProvenanceRejection()
		s.logger.WarnContext(ctx, "generation rejected by provenance gate",
			"error", err.Error(),
		)
		return nil, err
	}

	if strings.TrimSpace(req.ContentHash) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "content hash is required")
	}
	if strings.TrimSpace(req.Beacon.Randomness) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "beacon randomness is required")
	}
	if strings.TrimSpace(req.EntityType) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "entity type is required")
	}

	classification, err := s.classifier.Classify(ctx, req.EntityType)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("entity_type", string(classification.Type)))

	jurisdiction := s.jurisdictionOrDefault(req.Jurisdiction)
	trustLevel := s.trustOrDefault(req.TrustLevel)

	namespace, err := generator.NamespaceFor(classification.Type)
	if err != nil {
		return nil, err
	}

	pair, record, err := s.persistPair(ctx, req, classification, namespace, jurisdiction, trustLevel)
	if err != nil {
		return nil, err
	}

	s.countGenerated()
	s.emitGenerated(ctx, record)

	return &GenerateResult{
		TechnicalID:      pair.TechnicalID,
		LegalID:          pair.LegalID,
		Classification:   classification,
		Jurisdiction:     jurisdiction,
		TrustLevel:       trustLevel,
		Anchored:         true,
		PipelineEnforced: true,
	}, nil
}

// persistPair runs the check-then-insert loop: a conflicting sequence slot
// triggers a redraw unless the caller pinned the sequence.
func (s *Service) persistPair(
	ctx context.Context,
	req GenerateRequest,
	classification classify.Classification,
	namespace, jurisdiction string,
	trustLevel int,
) (generator.Pair, *mapping.Record, error) {
	for attempt := 1; ; attempt++ {
		pair, err := generator.Generate(ctx, generator.Input{
			Classification: classification,
			Jurisdiction:   jurisdiction,
			TrustLevel:     trustLevel,
			ContentHash:    req.ContentHash,
			Beacon:         req.Beacon,
			Sequence:       req.Sequence,
		})
		if err != nil {
			return generator.Pair{}, nil, err
		}

		tech, err := codec.ParseTechnical(pair.TechnicalID)
		if err != nil {
			return generator.Pair{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "generated id failed self-parse")
		}

		record := &mapping.Record{
			ID:           uuid.New(),
			TechnicalID:  pair.TechnicalID,
			LegalID:      pair.LegalID,
			EntityType:   classification.Type,
			Jurisdiction: jurisdiction,
			TrustLevel:   trustLevel,
			Namespace:    namespace,
			Sequence:     tech.Sequence,
			YearMonth:    tech.YearMonth,
		}

		err = s.store.Create(ctx, record)
		if err == nil {
			s.countStoreWrite()
			return pair, record, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return generator.Pair{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist mapping record")
		}
		if req.Sequence != "" {
			return generator.Pair{}, nil, dErrors.Newf(dErrors.CodeConflict,
				"sequence %s is already taken for namespace %s in %s", req.Sequence, namespace, tech.YearMonth)
		}
		if attempt >= maxSequenceAttempts {
			return generator.Pair{}, nil, dErrors.Newf(dErrors.CodeConflict,
				"could not find a free sequence slot after %d attempts", maxSequenceAttempts)
		}
	}
}

func (s *Service) jurisdictionOrDefault(jurisdiction string) string {
	if jurisdiction == "" {
		return s.defaultJurisdiction
	}
	return strings.ToUpper(jurisdiction)
}

func (s *Service) trustOrDefault(trustLevel *int) int {
	if trustLevel == nil {
		return s.defaultTrustLevel
	}
	return *trustLevel
}

func resultFromRecord(record *mapping.Record, source string) *Result {
	return &Result{
		TechnicalID:  record.TechnicalID,
		LegalID:      record.LegalID,
		EntityType:   record.EntityType,
		Jurisdiction: record.Jurisdiction,
		TrustLevel:   record.TrustLevel,
		Source:       source,
	}
}

func (s *Service) emitGenerated(ctx context.Context, record *mapping.Record) {
	s.auditEmitter.Emit(ctx, audit.Event{
		Action:      audit.ActionGenerated,
		TechnicalID: record.TechnicalID,
		LegalID:     record.LegalID,
	})
}

func (s *Service) emitTranslated(ctx context.Context, result *Result, direction Direction) {
	s.auditEmitter.Emit(ctx, audit.Event{
		Action:      audit.ActionTranslated,
		TechnicalID: result.TechnicalID,
		LegalID:     result.LegalID,
		Direction:   string(direction),
		Source:      result.Source,
	})
}

func (s *Service) countTranslation(direction Direction, source string) {
	if s.metrics != nil {
		s.metrics.Translations.WithLabelValues(string(direction), source).Inc()
	}
}

func (s *Service) countGenerated() {
	if s.metrics != nil {
		s.metrics.IDsGenerated.Inc()
	}
}

func (s *Service) countStoreWrite() {
	if s.metrics != nil {
		s.metrics.MappingStoreWrites.Inc()
	}
}

func (s *Service) countProvenanceRejection() {
	if s.metrics != nil {
		s.metrics.ProvenanceRejections.Inc()
	}
}

func (s *Service) countBatchItem(outcome string) {
	if s.metrics != nil {
		s.metrics.BatchItems.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) observeTranslateDuration(start time.Time) {
	if s.metrics != nil {
		s.metrics.TranslateDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}
}
