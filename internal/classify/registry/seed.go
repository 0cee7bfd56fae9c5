package registry

import (
	"context"

	"idbridge/internal/classify"
)

// Seed loads the development registry content: the six classification type
// names resolve to themselves so generation requests can name a type
// directly, plus a handful of well-known entities.
func Seed(ctx context.Context, store classify.RegistryStore) error {
	entries := []classify.RegistryEntry{
		{Key: "services", Type: classify.TypeServices, Category: "core"},
		{Key: "domains", Type: classify.TypeDomains, Category: "core"},
		{Key: "infrastructure", Type: classify.TypeInfrastructure, Category: "core"},
		{Key: "legal_data", Type: classify.TypeLegalData, Category: "compliance"},
		{Key: "version_control", Type: classify.TypeVersionControl, Category: "infrastructure"},
		{Key: "unstructured_data", Type: classify.TypeUnstructuredData, Category: "general"},

		{Key: "evidence-intake", Type: classify.TypeServices, Category: "evidence"},
		{Key: "communications-sync", Type: classify.TypeServices, Category: "communications"},
		{Key: "finance-ledger", Type: classify.TypeServices, Category: "financial"},
		{Key: "property-records", Type: classify.TypeDomains, Category: "property"},
		{Key: "case-docket", Type: classify.TypeLegalData, Category: "cases"},
		{Key: "artifact-repo", Type: classify.TypeInfrastructure, Category: "storage"},
	}
	for _, e := range entries {
		if err := store.Upsert(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
