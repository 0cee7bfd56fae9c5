// Package generator derives a checksum-protected hybrid identifier pair from
// a classification, a content hash, and an external randomness beacon.
package generator

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"

	"idbridge/internal/classify"
	"idbridge/internal/identifier/checksum"
	"idbridge/internal/identifier/codec"
	dErrors "idbridge/pkg/domain-errors"
	"idbridge/pkg/requestcontext"
)

// Beacon is one round of an external, independently verifiable randomness
// source. Only the randomness value enters the checksum; the round number is
// kept for audit.
type Beacon struct {
	Round      uint64 `json:"round"`
	Randomness string `json:"randomness"`
}

// Input carries everything one generation needs. Sequence and YearMonth are
// optional overrides: translation re-derivation supplies both from the
// decomposed counterpart so the derived id shares its coordinates.
type Input struct {
	Classification classify.Classification
	Jurisdiction   string
	TrustLevel     int
	ContentHash    string
	Beacon         Beacon
	Sequence       string
	YearMonth      string
}

// Pair is a generated hybrid identifier.
type Pair struct {
	TechnicalID string `json:"technical_id"`
	LegalID     string `json:"legal_id"`
}

var (
	sequencePattern     = regexp.MustCompile(`^[0-9]{4}$`)
	jurisdictionPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Generate builds the technical/legal identifier pair. The two checksums are
// computed independently over each base string with the same content hash
// and beacon, so they generally differ.
func Generate(ctx context.Context, in Input) (Pair, error) {
	namespace, err := NamespaceFor(in.Classification.Type)
	if err != nil {
		return Pair{}, err
	}
	entityLetter, err := LegalEntityFor(in.Classification.Type)
	if err != nil {
		return Pair{}, err
	}

	if !jurisdictionPattern.MatchString(in.Jurisdiction) {
		return Pair{}, dErrors.Newf(dErrors.CodeBadRequest,
			"jurisdiction %q must be three uppercase letters", in.Jurisdiction)
	}
	if in.TrustLevel < 0 || in.TrustLevel > 5 {
		return Pair{}, dErrors.Newf(dErrors.CodeBadRequest,
			"trust level %d out of range [0,5]", in.TrustLevel)
	}

	sequence := in.Sequence
	if sequence == "" {
		if sequence, err = DrawSequence(); err != nil {
			return Pair{}, err
		}
	} else if !sequencePattern.MatchString(sequence) {
		return Pair{}, dErrors.Newf(dErrors.CodeBadRequest,
			"sequence %q must be four digits", sequence)
	}

	yearMonth := in.YearMonth
	if yearMonth == "" {
		yearMonth = requestcontext.Now(ctx).Format("0601")
	}

	technical := codec.Technical{
		Version:   TechnicalVersion,
		Domain:    TechnicalDomain,
		Namespace: namespace,
		Sequence:  sequence,
		Type:      TechnicalTypeMark,
		YearMonth: yearMonth,
		Component: TechnicalComponent,
	}
	legal := codec.Legal{
		Version:      LegalVersion,
		Region:       RegionFor(in.Jurisdiction),
		Jurisdiction: in.Jurisdiction,
		Sequence:     sequence,
		EntityType:   entityLetter,
		YearMonth:    yearMonth,
		TrustLevel:   strconv.Itoa(in.TrustLevel),
	}

	technical.Checksum = string(checksum.Char(technical.Base(), in.ContentHash, in.Beacon.Randomness))
	legal.Checksum = string(checksum.Char(legal.Base(), in.ContentHash, in.Beacon.Randomness))

	return Pair{TechnicalID: technical.String(), LegalID: legal.String()}, nil
}

// DrawSequence draws a cryptographically secure random sequence in
// [1000, 9999]. Uniqueness is the caller's problem: the mapping store
// rejects taken slots and the service redraws.
func DrawSequence() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "draw sequence")
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}
