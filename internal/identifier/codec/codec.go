// Package codec encodes and decodes the two fixed-width, hyphen-delimited
// identifier formats.
//
// Both formats are eight hyphen-separated fields ending in a single check
// character. Parsing validates the grammar only; checksum verification is a
// separate explicit step (internal/identifier/checksum) so callers can tell
// malformed ids apart from tampered ones.
package codec

import (
	"fmt"
	"regexp"
	"strings"

	dErrors "idbridge/pkg/domain-errors"
)

// Grammars, bit-exact per the wire contract.
var (
	technicalPattern = regexp.MustCompile(`^[A-Z0-9]{2}-[A-Z]-[A-Z]{3}-[0-9]{4}-[A-Z]-[0-9]{4}-[0-9]-[0-9A-Z]$`)
	legalPattern     = regexp.MustCompile(`^[0-9]{2}-[A-Z]-[A-Z]{3}-[0-9]{4}-[A-Z]-[0-9]{4}-[0-9]-[0-9A-Z]$`)
)

const fieldCount = 8

// Technical is the decomposed internal-system-facing identifier:
// VERSION-DOMAIN-NAMESPACE-SEQUENCE-TYPE-YEARMONTH-COMPONENT-CHECKSUM.
type Technical struct {
	Version   string
	Domain    string
	Namespace string
	Sequence  string
	Type      string
	YearMonth string
	Component string
	Checksum  string
}

// Legal is the decomposed jurisdiction/trust-facing identifier:
// VERSION-REGION-JURISDICTION-SEQUENCE-ENTITYTYPE-YEARMONTH-TRUSTLEVEL-CHECKSUM.
type Legal struct {
	Version      string
	Region       string
	Jurisdiction string
	Sequence     string
	EntityType   string
	YearMonth    string
	TrustLevel   string
	Checksum     string
}

// ParseTechnical decomposes a technical identifier, returning a bad_request
// domain error when the field count or any per-field pattern does not match.
func ParseTechnical(id string) (Technical, error) {
	if !technicalPattern.MatchString(id) {
		return Technical{}, formatError("technical", id)
	}
	f := strings.Split(id, "-")
	return Technical{
		Version:   f[0],
		Domain:    f[1],
		Namespace: f[2],
		Sequence:  f[3],
		Type:      f[4],
		YearMonth: f[5],
		Component: f[6],
		Checksum:  f[7],
	}, nil
}

// ParseLegal decomposes a legal identifier.
func ParseLegal(id string) (Legal, error) {
	if !legalPattern.MatchString(id) {
		return Legal{}, formatError("legal", id)
	}
	f := strings.Split(id, "-")
	return Legal{
		Version:      f[0],
		Region:       f[1],
		Jurisdiction: f[2],
		Sequence:     f[3],
		EntityType:   f[4],
		YearMonth:    f[5],
		TrustLevel:   f[6],
		Checksum:     f[7],
	}, nil
}

// ValidTechnical reports whether id matches the technical grammar.
func ValidTechnical(id string) bool { return technicalPattern.MatchString(id) }

// ValidLegal reports whether id matches the legal grammar.
func ValidLegal(id string) bool { return legalPattern.MatchString(id) }

// Base returns the identifier without its check character.
func (t Technical) Base() string {
	return strings.Join([]string{t.Version, t.Domain, t.Namespace, t.Sequence, t.Type, t.YearMonth, t.Component}, "-")
}

// String returns the full identifier including the check character.
func (t Technical) String() string {
	return t.Base() + "-" + t.Checksum
}

// Base returns the identifier without its check character.
func (l Legal) Base() string {
	return strings.Join([]string{l.Version, l.Region, l.Jurisdiction, l.Sequence, l.EntityType, l.YearMonth, l.TrustLevel}, "-")
}

// String returns the full identifier including the check character.
func (l Legal) String() string {
	return l.Base() + "-" + l.Checksum
}

// SplitBase separates any full identifier into its base string and check
// character. It assumes the id already passed grammar validation.
func SplitBase(id string) (base string, check string) {
	idx := strings.LastIndex(id, "-")
	if idx < 0 {
		return id, ""
	}
	return id[:idx], id[idx+1:]
}

func formatError(grammar, id string) error {
	fields := len(strings.Split(id, "-"))
	if fields != fieldCount {
		return dErrors.Newf(dErrors.CodeBadRequest,
			"%s id %q has %d fields, want %d", grammar, id, fields, fieldCount)
	}
	return dErrors.New(dErrors.CodeBadRequest,
		fmt.Sprintf("%s id %q does not match grammar", grammar, id))
}
