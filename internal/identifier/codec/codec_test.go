package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "idbridge/pkg/domain-errors"
)

func TestParseTechnical(t *testing.T) {
	tech, err := ParseTechnical("AA-C-TSK-1234-I-2507-7-X")
	require.NoError(t, err)

	assert.Equal(t, "AA", tech.Version)
	assert.Equal(t, "C", tech.Domain)
	assert.Equal(t, "TSK", tech.Namespace)
	assert.Equal(t, "1234", tech.Sequence)
	assert.Equal(t, "I", tech.Type)
	assert.Equal(t, "2507", tech.YearMonth)
	assert.Equal(t, "7", tech.Component)
	assert.Equal(t, "X", tech.Checksum)
	assert.Equal(t, "AA-C-TSK-1234-I-2507-7", tech.Base())
	assert.Equal(t, "AA-C-TSK-1234-I-2507-7-X", tech.String())
}

func TestParseLegal(t *testing.T) {
	leg, err := ParseLegal("01-N-USA-1234-P-2503-3-X")
	require.NoError(t, err)

	assert.Equal(t, "01", leg.Version)
	assert.Equal(t, "N", leg.Region)
	assert.Equal(t, "USA", leg.Jurisdiction)
	assert.Equal(t, "1234", leg.Sequence)
	assert.Equal(t, "P", leg.EntityType)
	assert.Equal(t, "2503", leg.YearMonth)
	assert.Equal(t, "3", leg.TrustLevel)
	assert.Equal(t, "X", leg.Checksum)
	assert.Equal(t, "01-N-USA-1234-P-2503-3-X", leg.String())
}

func TestParseTechnicalRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		id   string
	}{
		{"empty", ""},
		{"too few fields", "AA-C-TSK-1234-I-2507-7"},
		{"too many fields", "AA-C-TSK-1234-I-2507-7-X-Y"},
		{"lowercase namespace", "AA-C-tsk-1234-I-2507-7-X"},
		{"short sequence", "AA-C-TSK-123-I-2507-7-X"},
		{"alpha sequence", "AA-C-TSK-12A4-I-2507-7-X"},
		{"long namespace", "AA-C-TASK-1234-I-2507-7-X"},
		{"digit component missing", "AA-C-TSK-1234-I-2507-Q-X"},
		{"lowercase checksum", "AA-C-TSK-1234-I-2507-7-x"},
		{"punctuation in version", "0!-C-TSK-1234-I-2507-7-X"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTechnical(tc.id)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		})
	}
}

func TestParseLegalRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		id   string
	}{
		{"alpha version", "AA-N-USA-1234-P-2503-3-X"},
		{"two letter jurisdiction", "01-N-US-1234-P-2503-3-X"},
		{"alpha trust level", "01-N-USA-1234-P-2503-T-X"},
		{"missing checksum", "01-N-USA-1234-P-2503-3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLegal(tc.id)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		})
	}
}

func TestParseDoesNotVerifyChecksum(t *testing.T) {
	// Any [0-9A-Z] check character parses; verification is a separate step.
	for _, check := range []string{"0", "9", "A", "Z"} {
		_, err := ParseTechnical("AA-C-SVC-1234-I-2507-7-" + check)
		assert.NoError(t, err, "check char %s", check)
	}
}

func TestSplitBase(t *testing.T) {
	base, check := SplitBase("AA-C-TSK-1234-I-2507-7-X")
	assert.Equal(t, "AA-C-TSK-1234-I-2507-7", base)
	assert.Equal(t, "X", check)
}
