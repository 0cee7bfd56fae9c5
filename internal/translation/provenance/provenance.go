// Package provenance issues and verifies pipeline capability tokens.
//
// Generation calls must prove they passed through the fixed ordered upstream
// stage sequence. A plain marker string would be forgeable by anyone who
// knows the expected stages, so the gate requires an HMAC-SHA256 signed
// token (JWT, HS256) whose claims carry the stage list. The signing key is
// derived from the service secret via HKDF so the raw secret is never used
// directly as key material.
package provenance

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	dErrors "idbridge/pkg/domain-errors"
	"idbridge/pkg/requestcontext"
)

// StageSeparator joins stage names inside the pipeline claim.
const StageSeparator = ">"

const (
	keyInfo   = "idbridge/provenance/v1"
	keyLength = 32
	issuer    = "idbridge-pipeline"
)

// Claims is the JWT payload carried by pipeline tokens.
type Claims struct {
	Pipeline string `json:"pipeline"`
	jwt.RegisteredClaims
}

// Verifier checks a pipeline token before generation proceeds.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// HMAC issues and verifies HS256-signed pipeline tokens. The same component
// serves both sides so tests and upstream stage runners share one codepath.
type HMAC struct {
	key      []byte
	required []string
}

// NewHMAC builds a verifier requiring the given ordered stage sequence.
func NewHMAC(serviceSecret string, requiredStages []string) (*HMAC, error) {
	if serviceSecret == "" {
		return nil, fmt.Errorf("service secret is required")
	}
	if len(requiredStages) == 0 {
		return nil, fmt.Errorf("at least one required pipeline stage is needed")
	}
	key, err := deriveKey(serviceSecret)
	if err != nil {
		return nil, err
	}
	return &HMAC{key: key, required: requiredStages}, nil
}

// Issue signs a token asserting the given stages were traversed, valid for ttl.
func (h *HMAC) Issue(ctx context.Context, stages []string, ttl time.Duration) (string, error) {
	now := requestcontext.Now(ctx)
	claims := Claims{
		Pipeline: strings.Join(stages, StageSeparator),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.key)
	if err != nil {
		return "", fmt.Errorf("sign pipeline token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry, and that the required stage sequence
// appears in order within the claimed pipeline. Every failure maps to the
// PIPELINE_VIOLATION domain error; the caller rejects before touching any
// store.
func (h *HMAC) Verify(_ context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodePipelineViolation, "pipeline token missing")
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return h.key, nil
	})
	if err != nil || !token.Valid {
		return nil, dErrors.New(dErrors.CodePipelineViolation, "pipeline token invalid")
	}

	claimed := strings.Split(claims.Pipeline, StageSeparator)
	if !containsInOrder(claimed, h.required) {
		return nil, dErrors.Newf(dErrors.CodePipelineViolation,
			"pipeline %q does not satisfy required stage order %q",
			claims.Pipeline, strings.Join(h.required, StageSeparator))
	}
	return &claims, nil
}

// containsInOrder reports whether want appears as a subsequence of got.
func containsInOrder(got, want []string) bool {
	i := 0
	for _, stage := range got {
		if i < len(want) && stage == want[i] {
			i++
		}
	}
	return i == len(want)
}

func deriveKey(secret string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	key := make([]byte, keyLength)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive provenance key: %w", err)
	}
	return key, nil
}

var _ Verifier = (*HMAC)(nil)
