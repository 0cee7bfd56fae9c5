package translation_test

import (
	"context"
	"log/slog"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idbridge/internal/audit"
	"idbridge/internal/classify"
	"idbridge/internal/classify/registry"
	"idbridge/internal/identifier/generator"
	"idbridge/internal/mapping"
	"idbridge/internal/platform/metrics"
	"idbridge/internal/translation"
	"idbridge/internal/translation/provenance"
	dErrors "idbridge/pkg/domain-errors"
	"idbridge/pkg/platform/sentinel"
	"idbridge/pkg/requestcontext"
)

var requiredStages = []string{"intake", "classify", "anchor", "mint"}

var testBeacon = generator.Beacon{
	Round:      4242,
	Randomness: "8f2a77c1d94e03b65511aa09c3de7f2864bb01ce529d40a7e6f83c12d59b0441",
}

type fixture struct {
	service  *translation.Service
	store    *mapping.InMemoryStore
	registry *countingRegistry
	gate     *provenance.HMAC
	audit    *audit.MemoryPublisher
}

// countingRegistry wraps a real store so tests can assert the gate rejected
// a call before any classification happened.
type countingRegistry struct {
	inner classify.RegistryStore
	finds atomic.Int64
}

func (c *countingRegistry) Find(ctx context.Context, key string) (classify.RegistryEntry, error) {
	c.finds.Add(1)
	return c.inner.Find(ctx, key)
}

func (c *countingRegistry) Upsert(ctx context.Context, entry classify.RegistryEntry) error {
	return c.inner.Upsert(ctx, entry)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := &countingRegistry{inner: registry.NewMemory()}
	require.NoError(t, registry.Seed(context.Background(), reg))

	gate, err := provenance.NewHMAC("test-secret", requiredStages)
	require.NoError(t, err)

	store := mapping.NewInMemoryStore()
	publisher := audit.NewMemoryPublisher()
	logger := slog.New(slog.DiscardHandler)

	svc := translation.New(store, classify.New(reg), gate, logger,
		translation.WithAudit(audit.NewEmitter(publisher, logger)),
		translation.WithMetrics(metrics.NewWith(prometheus.NewRegistry())),
	)
	return &fixture{service: svc, store: store, registry: reg, gate: gate, audit: publisher}
}

func (f *fixture) token(t *testing.T, stages []string) string {
	t.Helper()
	token, err := f.gate.Issue(context.Background(), stages, time.Minute)
	require.NoError(t, err)
	return token
}

// pinnedCtx fixes the clock so year-month fields are deterministic.
func pinnedCtx() context.Context {
	at := time.Date(2025, time.July, 14, 10, 30, 0, 0, time.UTC)
	return requestcontext.WithTime(context.Background(), at)
}

func TestGenerateHybridForServicesEntity(t *testing.T) {
	f := newFixture(t)
	ctx := pinnedCtx()

	result, err := f.service.GenerateHybrid(ctx, translation.GenerateRequest{
		ContentHash:   "a3f5",
		EntityType:    "services",
		Jurisdiction:  "USA",
		Beacon:        testBeacon,
		PipelineToken: f.token(t, requiredStages),
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^AA-C-SVC-[0-9]{4}-I-2507-7-[0-9A-Z]$`), result.TechnicalID)
	assert.Regexp(t, regexp.MustCompile(`^01-N-USA-[0-9]{4}-T-2507-3-[0-9A-Z]$`), result.LegalID)
	assert.Equal(t, classify.TypeServices, result.Classification.Type)
	assert.Equal(t, classify.SourceRegistry, result.Classification.Source)
	assert.True(t, result.Anchored)
	assert.True(t, result.PipelineEnforced)

	// Both halves share the sequence and year-month coordinates.
	assert.Equal(t, result.TechnicalID[9:13], result.LegalID[9:13])

	count, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	events := f.audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionGenerated, events[0].Action)
	assert.Equal(t, result.TechnicalID, events[0].TechnicalID)
}

func TestGenerateHybridRejectsWithoutTouchingStores(t *testing.T) {
	f := newFixture(t)
	ctx := pinnedCtx()
	findsBefore := f.registry.finds.Load()

	cases := map[string]string{
		"missing token": "",
		"bare marker":   "intake>classify>anchor>mint",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.GenerateHybrid(ctx, translation.GenerateRequest{
				ContentHash:   "a3f5",
				EntityType:    "services",
				Beacon:        testBeacon,
				PipelineToken: token,
			})
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodePipelineViolation))
		})
	}

	t.Run("out of order stages", func(t *testing.T) {
		token := f.token(t, []string{"classify", "intake", "anchor", "mint"})
		_, err := f.service.GenerateHybrid(ctx, translation.GenerateRequest{
			ContentHash:   "a3f5",
			EntityType:    "services",
			Beacon:        testBeacon,
			PipelineToken: token,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePipelineViolation))
	})

	count, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "rejected calls must not persist anything")
	assert.Equal(t, findsBefore, f.registry.finds.Load(),
		"rejected calls must not reach the classifier")
	assert.Empty(t, f.audit.Events())
}

func TestGenerateHybridValidatesInputsAfterGate(t *testing.T) {
	f := newFixture(t)
	ctx := pinnedCtx()
	token := f.token(t, requiredStages)

	cases := []struct {
		name string
		req  translation.GenerateRequest
	}{
		{"missing content hash", translation.GenerateRequest{
			EntityType: "services", Beacon: testBeacon, PipelineToken: token,
		}},
		{"missing beacon", translation.GenerateRequest{
			ContentHash: "a3f5", EntityType: "services", PipelineToken: token,
		}},
		{"missing entity type", translation.GenerateRequest{
			ContentHash: "a3f5", Beacon: testBeacon, PipelineToken: token,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.GenerateHybrid(ctx, tc.req)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		})
	}
}

func TestGenerateHybridPinnedSequenceConflict(t *testing.T) {
	f := newFixture(t)
	ctx := pinnedCtx()

	first, err := f.service.GenerateHybrid(ctx, translation.GenerateRequest{
		ContentHash:   "a3f5",
		EntityType:    "services",
		Sequence:      "4711",
		Beacon:        testBeacon,
		PipelineToken: f.token(t, requiredStages),
	})
	require.NoError(t, err)
	assert.Contains(t, first.TechnicalID, "-4711-")

	// Same namespace, same month, same pinned sequence: the slot is taken
	// and a pinned sequence is never redrawn.
	_, err = f.service.GenerateHybrid(ctx, translation.GenerateRequest{
		ContentHash:   "b7e2",
		EntityType:    "services",
		Sequence:      "4711",
		Beacon:        testBeacon,
		PipelineToken: f.token(t, requiredStages),
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

// conflictStore forces the first n Create calls to collide so the redraw
// loop is observable without controlling the random draw.
type conflictStore struct {
	mapping.Store
	remaining atomic.Int64
}

func (c *conflictStore) Create(ctx context.Context, record *mapping.Record) error {
	if c.remaining.Add(-1) >= 0 {
		return sentinel.ErrConflict
	}
	return c.Store.Create(ctx, record)
}

func TestGenerateHybridRedrawsSequenceOnConflict(t *testing.T) {
	reg := registry.NewMemory()
	require.NoError(t, registry.Seed(context.Background(), reg))
	gate, err := provenance.NewHMAC("test-secret", requiredStages)
	require.NoError(t, err)
	logger := slog.New(slog.DiscardHandler)

	store := &conflictStore{Store: mapping.NewInMemoryStore()}
	store.remaining.Store(2)

	svc := translation.New(store, classify.New(reg), gate, logger)
	token, err := gate.Issue(context.Background(), requiredStages, time.Minute)
	require.NoError(t, err)

	result, err := svc.GenerateHybrid(pinnedCtx(), translation.GenerateRequest{
		ContentHash:   "a3f5",
		EntityType:    "services",
		Beacon:        testBeacon,
		PipelineToken: token,
	})
	require.NoError(t, err, "two collisions are within the redraw budget")
	assert.NotEmpty(t, result.TechnicalID)

	store.remaining.Store(100)
	_, err = svc.GenerateHybrid(pinnedCtx(), translation.GenerateRequest{
		ContentHash:   "a3f5",
		EntityType:    "services",
		Beacon:        testBeacon,
		PipelineToken: token,
	})
	require.Error(t, err, "a persistently full namespace exhausts the redraw budget")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestTechnicalToLegalPrefersStoredMapping(t *testing.T) {
	f := newFixture(t)
	ctx := pinnedCtx()

	generated, err := f.service.GenerateHybrid(ctx, translation.GenerateRequest{
		ContentHash:   "a3f5",
		EntityType:    "evidence-intake",
		Beacon:        testBeacon,
		PipelineToken: f.token(t, requiredStages),
	})
	require.NoError(t, err)

	result, err := f.service.TechnicalToLegal(ctx, translation.TechnicalToLegalRequest{
		TechnicalID: generated.TechnicalID,
	})
	require.NoError(t, err)
	assert.Equal(t, generated.LegalID, result.LegalID)
	assert.Equal(t, translation.SourceExistingMapping, result.Source)
	assert.Equal(t, classify.TypeServices, result.EntityType)
}

func TestTechnicalToLegalDerivesOnMiss(t *testing.T) {
	f := newFixture(t)
	ctx := pinnedCtx()

	// Well-formed, never generated. The counterpart is derived from the
	// decomposed fields and shares sequence and year-month.
	result, err := f.service.TechnicalToLegal(ctx, translation.TechnicalToLegalRequest{
		TechnicalID: "AA-C-DOC-1234-I-2507-7-Q",
	})
	require.NoError(t, err)
	assert.Equal(t, translation.SourceGenerated, result.Source)
	assert.Equal(t, classify.TypeUnstructuredData, result.EntityType)
	assert.Regexp(t, regexp.MustCompile(`^01-N-USA-1234-T-2507-3-[0-9A-Z]$`), result.LegalID)

	// Derivation is a fresh computation, nothing is persisted.
	count, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestTechnicalToLegalUnknownNamespace(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.TechnicalToLegal(pinnedCtx(), translation.TechnicalToLegalRequest{
		TechnicalID: "AA-C-TSK-1234-I-2507-7-X",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestTechnicalToLegalRejectsMalformedID(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.TechnicalToLegal(pinnedCtx(), translation.TechnicalToLegalRequest{
		TechnicalID: "AA-C-SVC-123-I-2507-7-X",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestLegalToTechnicalRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := pinnedCtx()

	generated, err := f.service.GenerateHybrid(ctx, translation.GenerateRequest{
		ContentHash:   "a3f5",
		EntityType:    "case-docket",
		Beacon:        testBeacon,
		PipelineToken: f.token(t, requiredStages),
	})
	require.NoError(t, err)

	result, err := f.service.LegalToTechnical(ctx, translation.LegalToTechnicalRequest{
		LegalID: generated.LegalID,
	})
	require.NoError(t, err)
	assert.Equal(t, generated.TechnicalID, result.TechnicalID)
	assert.Equal(t, translation.SourceExistingMapping, result.Source)
}

func TestLegalToTechnicalNeverDerives(t *testing.T) {
	f := newFixture(t)

	// Well-formed legal id with no stored mapping: the reverse table is
	// lossy, so the service reports not found instead of guessing.
	_, err := f.service.LegalToTechnical(pinnedCtx(), translation.LegalToTechnicalRequest{
		LegalID: "01-N-USA-9999-T-2507-3-A",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestTranslateBatchIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	ctx := pinnedCtx()

	generated, err := f.service.GenerateHybrid(ctx, translation.GenerateRequest{
		ContentHash:   "a3f5",
		EntityType:    "services",
		Beacon:        testBeacon,
		PipelineToken: f.token(t, requiredStages),
	})
	require.NoError(t, err)

	batch, err := f.service.TranslateBatch(ctx, translation.BatchRequest{
		Direction: translation.DirectionTechnicalToLegal,
		IDs: []string{
			generated.TechnicalID,      // stored mapping
			"AA-C-DOC-5555-I-2507-7-K", // derived
			"not-an-identifier",        // malformed
			"AA-C-TSK-1234-I-2507-7-X", // unknown namespace
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 4, batch.Total)
	assert.Equal(t, 2, batch.Successful)
	assert.Equal(t, 2, batch.Failed)

	require.Len(t, batch.Results, 2)
	assert.Equal(t, generated.TechnicalID, batch.Results[0].TechnicalID, "results keep submission order")
	assert.Equal(t, translation.SourceExistingMapping, batch.Results[0].Source)
	assert.Equal(t, "AA-C-DOC-5555-I-2507-7-K", batch.Results[1].TechnicalID)
	assert.Equal(t, translation.SourceGenerated, batch.Results[1].Source)

	require.Len(t, batch.Errors, 2)
	assert.Equal(t, "not-an-identifier", batch.Errors[0].ID)
	assert.Equal(t, string(dErrors.CodeBadRequest), batch.Errors[0].Error)
	assert.Equal(t, "AA-C-TSK-1234-I-2507-7-X", batch.Errors[1].ID)
	assert.Equal(t, string(dErrors.CodeNotFound), batch.Errors[1].Error)
}

func TestTranslateBatchValidation(t *testing.T) {
	f := newFixture(t)
	ctx := pinnedCtx()

	_, err := f.service.TranslateBatch(ctx, translation.BatchRequest{
		Direction: "sideways",
		IDs:       []string{"AA-C-SVC-1234-I-2507-7-X"},
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = f.service.TranslateBatch(ctx, translation.BatchRequest{
		Direction: translation.DirectionTechnicalToLegal,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	oversized := make([]string, 101)
	for i := range oversized {
		oversized[i] = "AA-C-SVC-1234-I-2507-7-X"
	}
	_, err = f.service.TranslateBatch(ctx, translation.BatchRequest{
		Direction: translation.DirectionTechnicalToLegal,
		IDs:       oversized,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}
