// Package lookup serves read-only registry inspection queries.
package lookup

import (
	"context"
	"errors"
	"time"

	"idbridge/internal/classify"
	"idbridge/internal/identifier/codec"
	"idbridge/internal/identifier/generator"
	"idbridge/internal/mapping"
	dErrors "idbridge/pkg/domain-errors"
	"idbridge/pkg/platform/sentinel"
	"idbridge/pkg/requestcontext"
)

// Kind selects which registry a lookup reads.
type Kind string

const (
	KindEntity    Kind = "entity"
	KindMapping   Kind = "mapping"
	KindNamespace Kind = "namespace"
)

// ParseKind validates a raw lookup kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindEntity, KindMapping, KindNamespace:
		return Kind(raw), nil
	}
	return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown lookup type %q", raw)
}

// Entry is one lookup answer. Data holds the kind-specific payload.
type Entry struct {
	Key       string    `json:"key"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Service answers lookups against the entity registry, the mapping store,
// and the static namespace table.
type Service struct {
	registry classify.RegistryStore
	mappings mapping.Store
}

// New builds a lookup service.
func New(registry classify.RegistryStore, mappings mapping.Store) *Service {
	return &Service{registry: registry, mappings: mappings}
}

// Lookup resolves id within the registry selected by kind.
func (s *Service) Lookup(ctx context.Context, kind Kind, id string) (*Entry, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "id query parameter is required")
	}
	switch kind {
	case KindEntity:
		return s.lookupEntity(ctx, id)
	case KindMapping:
		return s.lookupMapping(ctx, id)
	case KindNamespace:
		return s.lookupNamespace(ctx, id)
	}
	return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown lookup type %q", kind)
}

func (s *Service) lookupEntity(ctx context.Context, id string) (*Entry, error) {
	entry, err := s.registry.Find(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "entity %q not found in registry", id)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "registry lookup failed")
	}
	return &Entry{Key: entry.Key, Data: entry, Timestamp: entry.UpdatedAt}, nil
}

// lookupMapping accepts either half of a pair and returns the full record.
func (s *Service) lookupMapping(ctx context.Context, id string) (*Entry, error) {
	var (
		record *mapping.Record
		err    error
	)
	switch {
	case codec.ValidTechnical(id):
		record, err = s.mappings.FindByTechnicalID(ctx, id)
	case codec.ValidLegal(id):
		record, err = s.mappings.FindByLegalID(ctx, id)
	default:
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "id %q is not a well-formed identifier", id)
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no mapping recorded for %q", id)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "mapping lookup failed")
	}
	return &Entry{Key: id, Data: record, Timestamp: record.CreatedAt}, nil
}

// lookupNamespace answers from the static translation tables; the id may be
// a classification type name or a namespace code.
func (s *Service) lookupNamespace(ctx context.Context, id string) (*Entry, error) {
	type namespaceData struct {
		EntityType      classify.Type `json:"entity_type"`
		Namespace       string        `json:"namespace"`
		LegalEntityCode string        `json:"legal_entity_code"`
	}

	entityType, err := classify.ParseType(id)
	if err != nil {
		if entityType, err = generator.TypeForNamespace(id); err != nil {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "namespace %q not found", id)
		}
	}

	namespace, err := generator.NamespaceFor(entityType)
	if err != nil {
		return nil, err
	}
	legalCode, err := generator.LegalEntityFor(entityType)
	if err != nil {
		return nil, err
	}
	return &Entry{
		Key: id,
		Data: namespaceData{
			EntityType:      entityType,
			Namespace:       namespace,
			LegalEntityCode: legalCode,
		},
		Timestamp: requestcontext.Now(ctx),
	}, nil
}
