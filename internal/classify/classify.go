// Package classify maps an arbitrary entity reference to a typed category
// using a fixed precedence of rules.
package classify

import (
	"context"
	"errors"
	"strings"
	"time"

	dErrors "idbridge/pkg/domain-errors"
	"idbridge/pkg/platform/sentinel"
)

// Type is the technical entity category of a classified reference.
type Type string

const (
	TypeServices         Type = "services"
	TypeDomains          Type = "domains"
	TypeInfrastructure   Type = "infrastructure"
	TypeLegalData        Type = "legal_data"
	TypeVersionControl   Type = "version_control"
	TypeUnstructuredData Type = "unstructured_data"
)

// Source records which rule produced a classification.
type Source string

const (
	SourceRegistry         Source = "registry"
	SourcePatternDetection Source = "pattern_detection"
	SourceDefault          Source = "default"
)

// Rule precedence: lower wins, the first matching rule short-circuits.
const (
	PrecedenceRegistry       = 1
	PrecedenceLegalPattern   = 2
	PrecedenceVersionControl = 3
	PrecedenceDefault        = 4
)

// Classification is the immutable result of one classify call. It is not
// guaranteed stable across calls if registry content changes in between.
type Classification struct {
	Type       Type   `json:"type"`
	Category   string `json:"category"`
	Source     Source `json:"source"`
	Precedence int    `json:"precedence"`
}

// RegistryEntry is an authoritative registry record keyed by raw reference.
type RegistryEntry struct {
	Key       string    `json:"key"`
	Type      Type      `json:"type"`
	Category  string    `json:"category"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RegistryStore is the read-mostly authoritative registry. Implementations
// return sentinel.ErrNotFound for unknown keys.
type RegistryStore interface {
	Find(ctx context.Context, key string) (RegistryEntry, error)
	Upsert(ctx context.Context, entry RegistryEntry) error
}

// Case-insensitive substrings denoting compliance or legal material.
var legalPatterns = []string{
	"motion",
	"affidavit",
	"contract",
	"compliance",
	"deposition",
	"subpoena",
	"exhibit",
	"statute",
	"court-filing",
	"legal",
}

// Version-control marker segments and prefixes.
var (
	vcsSegments = []string{".git", ".svn", ".hg"}
	vcsPrefixes = []string{"refs/"}
)

// Service applies the ordered rule chain. Pure function of the reference and
// current registry content; no caching here (the registry store may cache).
type Service struct {
	registry RegistryStore
}

// New builds a classifier over the given registry store.
func New(registry RegistryStore) *Service {
	return &Service{registry: registry}
}

// Classify resolves entityRef through the rule chain, first match wins:
// registry lookup, legal patterns, version-control markers, default.
func (s *Service) Classify(ctx context.Context, entityRef string) (Classification, error) {
	entry, err := s.registry.Find(ctx, entityRef)
	switch {
	case err == nil:
		return Classification{
			Type:       entry.Type,
			Category:   entry.Category,
			Source:     SourceRegistry,
			Precedence: PrecedenceRegistry,
		}, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return Classification{}, dErrors.Wrap(err, dErrors.CodeInternal, "registry lookup failed")
	}

	if matchesLegalPattern(entityRef) {
		return Classification{
			Type:       TypeLegalData,
			Category:   "compliance",
			Source:     SourcePatternDetection,
			Precedence: PrecedenceLegalPattern,
		}, nil
	}

	if matchesVersionControl(entityRef) {
		return Classification{
			Type:       TypeVersionControl,
			Category:   "infrastructure",
			Source:     SourcePatternDetection,
			Precedence: PrecedenceVersionControl,
		}, nil
	}

	return Classification{
		Type:       TypeUnstructuredData,
		Category:   "general",
		Source:     SourceDefault,
		Precedence: PrecedenceDefault,
	}, nil
}

// ValidType reports whether t is a known classification type. Callers use it
// to reject unknown types before they reach the generator tables.
func ValidType(t Type) bool {
	switch t {
	case TypeServices, TypeDomains, TypeInfrastructure, TypeLegalData, TypeVersionControl, TypeUnstructuredData:
		return true
	}
	return false
}

// ParseType converts a raw string to a Type, or an unprocessable_entity
// domain error (the ClassificationError class).
func ParseType(raw string) (Type, error) {
	t := Type(raw)
	if !ValidType(t) {
		return "", dErrors.Newf(dErrors.CodeUnprocessable, "unknown classification type %q", raw)
	}
	return t, nil
}

func matchesLegalPattern(ref string) bool {
	lower := strings.ToLower(ref)
	for _, p := range legalPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func matchesVersionControl(ref string) bool {
	for _, prefix := range vcsPrefixes {
		if strings.HasPrefix(ref, prefix) {
			return true
		}
	}
	for _, seg := range strings.Split(ref, "/") {
		for _, marker := range vcsSegments {
			if seg == marker {
				return true
			}
		}
	}
	return false
}
