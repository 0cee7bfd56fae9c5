package generator_test

import (
	"context"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idbridge/internal/classify"
	"idbridge/internal/identifier/codec"
	"idbridge/internal/identifier/generator"
	dErrors "idbridge/pkg/domain-errors"
	"idbridge/pkg/requestcontext"
)

func servicesInput() generator.Input {
	return generator.Input{
		Classification: classify.Classification{
			Type:       classify.TypeServices,
			Category:   "core",
			Source:     classify.SourceRegistry,
			Precedence: 1,
		},
		Jurisdiction: "USA",
		TrustLevel:   3,
		ContentHash:  "abc123",
		Beacon:       generator.Beacon{Round: 1234, Randomness: "r1"},
	}
}

func fixedClock(t *testing.T) context.Context {
	t.Helper()
	// July 2025 so year-month is 2507.
	return requestcontext.WithTime(context.Background(),
		time.Date(2025, time.July, 14, 12, 0, 0, 0, time.UTC))
}

func TestGenerateGrammarConformance(t *testing.T) {
	ctx := fixedClock(t)

	for _, entityType := range []classify.Type{
		classify.TypeServices, classify.TypeDomains, classify.TypeInfrastructure,
		classify.TypeLegalData, classify.TypeVersionControl, classify.TypeUnstructuredData,
	} {
		in := servicesInput()
		in.Classification.Type = entityType

		pair, err := generator.Generate(ctx, in)
		require.NoError(t, err, entityType)

		assert.True(t, codec.ValidTechnical(pair.TechnicalID), "technical %q", pair.TechnicalID)
		assert.True(t, codec.ValidLegal(pair.LegalID), "legal %q", pair.LegalID)
	}
}

func TestGenerateServicesShape(t *testing.T) {
	ctx := fixedClock(t)

	pair, err := generator.Generate(ctx, servicesInput())
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^AA-C-SVC-[0-9]{4}-I-2507-7-[0-9A-Z]$`), pair.TechnicalID)
	assert.Regexp(t, regexp.MustCompile(`^01-N-USA-[0-9]{4}-T-2507-3-[0-9A-Z]$`), pair.LegalID)
}

func TestGenerateSharesSequenceAndYearMonth(t *testing.T) {
	pair, err := generator.Generate(fixedClock(t), servicesInput())
	require.NoError(t, err)

	tech, err := codec.ParseTechnical(pair.TechnicalID)
	require.NoError(t, err)
	leg, err := codec.ParseLegal(pair.LegalID)
	require.NoError(t, err)

	assert.Equal(t, tech.Sequence, leg.Sequence)
	assert.Equal(t, tech.YearMonth, leg.YearMonth)

	seq, err := strconv.Atoi(tech.Sequence)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, seq, 1000)
	assert.LessOrEqual(t, seq, 9999)
}

func TestGenerateHonorsCallerSequence(t *testing.T) {
	in := servicesInput()
	in.Sequence = "4242"

	pair, err := generator.Generate(fixedClock(t), in)
	require.NoError(t, err)

	tech, err := codec.ParseTechnical(pair.TechnicalID)
	require.NoError(t, err)
	assert.Equal(t, "4242", tech.Sequence)
}

func TestGenerateRejectsBadSequence(t *testing.T) {
	for _, seq := range []string{"99", "12345", "12a4"} {
		in := servicesInput()
		in.Sequence = seq
		_, err := generator.Generate(fixedClock(t), in)
		require.Error(t, err, seq)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest), seq)
	}
}

func TestGenerateIsDeterministicForFixedInputs(t *testing.T) {
	in := servicesInput()
	in.Sequence = "1234"
	ctx := fixedClock(t)

	first, err := generator.Generate(ctx, in)
	require.NoError(t, err)
	second, err := generator.Generate(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLossyLegalTypeTable(t *testing.T) {
	ctx := fixedClock(t)
	want := map[classify.Type]string{
		classify.TypeServices:         "T",
		classify.TypeInfrastructure:   "T",
		classify.TypeVersionControl:   "T",
		classify.TypeUnstructuredData: "T",
		classify.TypeDomains:          "L",
		classify.TypeLegalData:        "P",
	}
	for entityType, letter := range want {
		in := servicesInput()
		in.Classification.Type = entityType

		pair, err := generator.Generate(ctx, in)
		require.NoError(t, err, entityType)

		leg, err := codec.ParseLegal(pair.LegalID)
		require.NoError(t, err)
		assert.Equal(t, letter, leg.EntityType, entityType)
	}
}

func TestReverseTableIsTableConsistent(t *testing.T) {
	// Round trips assert mapping-table consistency, not byte-for-byte
	// identity: every type's forward letter must reverse to a type that
	// forwards to the same letter.
	for _, entityType := range []classify.Type{
		classify.TypeServices, classify.TypeDomains, classify.TypeInfrastructure,
		classify.TypeLegalData, classify.TypeVersionControl, classify.TypeUnstructuredData,
	} {
		letter, err := generator.LegalEntityFor(entityType)
		require.NoError(t, err)

		reversed, err := generator.TypeForLegalEntity(letter)
		require.NoError(t, err)

		letterAgain, err := generator.LegalEntityFor(reversed)
		require.NoError(t, err)
		assert.Equal(t, letter, letterAgain, entityType)
	}
}

func TestRegionTable(t *testing.T) {
	cases := map[string]string{
		"USA": "N", "CAN": "N",
		"DEU": "E", "GBR": "E",
		"JPN": "A",
		"BRA": "S",
		"ZAF": "F",
		"AUS": "O",
		"XXX": "N", // unmapped defaults to N
	}
	for jurisdiction, region := range cases {
		assert.Equal(t, region, generator.RegionFor(jurisdiction), jurisdiction)
	}
}

func TestNamespaceRoundTrip(t *testing.T) {
	for _, entityType := range []classify.Type{
		classify.TypeServices, classify.TypeDomains, classify.TypeInfrastructure,
		classify.TypeLegalData, classify.TypeVersionControl, classify.TypeUnstructuredData,
	} {
		ns, err := generator.NamespaceFor(entityType)
		require.NoError(t, err)
		back, err := generator.TypeForNamespace(ns)
		require.NoError(t, err)
		assert.Equal(t, entityType, back)
	}

	_, err := generator.TypeForNamespace("ZZZ")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnprocessable))
}

func TestGenerateRejectsBadJurisdictionAndTrust(t *testing.T) {
	in := servicesInput()
	in.Jurisdiction = "usa"
	_, err := generator.Generate(fixedClock(t), in)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	in = servicesInput()
	in.TrustLevel = 7
	_, err = generator.Generate(fixedClock(t), in)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}
