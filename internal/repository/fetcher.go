package repository

import (
	"context"

	"github.com/user/toolscout-service/internal/entity"
)

// SearchOptions bounds a provider search.
type SearchOptions struct {
	MaxResults int
	SortBy     string
	MinStars   int
}

// Fetcher defines the contract for one provider kind. Side effects are
// network calls only; fetchers never persist.
type Fetcher interface {
	// Kind reports which SourceKind this fetcher serves.
	Kind() entity.SourceKind
	// Search queries the provider's search API for candidate items.
	Search(ctx context.Context, query string, opts SearchOptions) ([]entity.ProviderItem, error)
	// Enrich fetches per-item detail. A 404 on an optional sub-resource
	// degrades to an empty string rather than failing the enrichment.
	Enrich(ctx context.Context, item entity.ProviderItem) (*entity.Enrichment, error)
	// IsRelevant applies the keyword relevance filter to the item plus its
	// enrichment.
	IsRelevant(item entity.ProviderItem, enrichment *entity.Enrichment) bool
	// InstallCommand derives the install one-liner for the item.
	InstallCommand(item entity.ProviderItem) string
}
