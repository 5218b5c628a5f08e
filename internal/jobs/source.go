package jobs

import "context"

// Source is where listings come from. Implementations hide how the site is
// reached, so the ranking and UI layers never see markup.
type Source interface {
	// Filters returns the live filter vocabulary of the site.
	Filters(ctx context.Context) (FilterSet, error)
	// Search returns every listing matching the filters in site order.
	Search(ctx context.Context, filters SearchFilters) (*Listings, error)
	// Describe returns copies of the listings with their ad text filled in.
	// Listings whose ad cannot be fetched keep an empty description.
	Describe(ctx context.Context, listings []Listing) []Listing
}
