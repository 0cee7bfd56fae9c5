package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idbridge/internal/classify"
	"idbridge/internal/classify/registry"
	"idbridge/pkg/platform/sentinel"
)

func TestMemoryFindMiss(t *testing.T) {
	store := registry.NewMemory()
	_, err := store.Find(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
}

func TestMemoryUpsertAndFind(t *testing.T) {
	store := registry.NewMemory()
	ctx := context.Background()

	entry := classify.RegistryEntry{Key: "evidence-intake", Type: classify.TypeServices, Category: "evidence"}
	require.NoError(t, store.Upsert(ctx, entry))

	got, err := store.Find(ctx, "evidence-intake")
	require.NoError(t, err)
	assert.Equal(t, classify.TypeServices, got.Type)
	assert.Equal(t, "evidence", got.Category)
	assert.False(t, got.UpdatedAt.IsZero(), "upsert should stamp UpdatedAt")
}

func TestMemoryUpsertOverwrites(t *testing.T) {
	store := registry.NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, classify.RegistryEntry{Key: "k", Type: classify.TypeServices, Category: "a"}))
	require.NoError(t, store.Upsert(ctx, classify.RegistryEntry{Key: "k", Type: classify.TypeDomains, Category: "b"}))

	got, err := store.Find(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, classify.TypeDomains, got.Type)
	assert.Equal(t, "b", got.Category)
}

func TestSeedRegistersTypeNames(t *testing.T) {
	store := registry.NewMemory()
	ctx := context.Background()
	require.NoError(t, registry.Seed(ctx, store))

	for _, typeName := range []string{
		"services", "domains", "infrastructure",
		"legal_data", "version_control", "unstructured_data",
	} {
		got, err := store.Find(ctx, typeName)
		require.NoError(t, err, typeName)
		assert.Equal(t, classify.Type(typeName), got.Type)
	}
}
