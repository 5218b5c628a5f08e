package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/finn-ranker/internal/jobs"
)

type keywordsFilter struct {
	disabled bool
	reason   string
	keywords []string
}

// NewKeywords creates a filter that removes listings whose title contains any
// of the configured keywords, e.g. "konsulent" or "senior".
func NewKeywords() Filter {
	return &keywordsFilter{}
}

func (f *keywordsFilter) Name() string { return "keywords" }

func (f *keywordsFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *keywordsFilter) IsEnabled() bool { return !f.disabled }

func (f *keywordsFilter) Validate(cfg *Config) error {
	f.keywords = nil
	if cfg != nil {
		f.keywords = folded(cfg.Keywords)
	}
	return nil
}

func (f *keywordsFilter) Apply(_ context.Context, deps Deps, l *jobs.Listings) (*jobs.Listings, Step, error) {
	initial := l.Len()
	if len(f.keywords) == 0 {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	excluded := l.Exclude(func(listing jobs.Listing) bool {
		title := jobs.Fold(listing.Title)
		for _, kw := range f.keywords {
			if strings.Contains(title, kw) {
				return true
			}
		}
		return false
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding listings by title keywords",
			zap.Strings("keywords", f.keywords),
			zap.Strings("excluded_listings", excluded),
			zap.Int("listings_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

func (f *keywordsFilter) Status() Status {
	details := map[string]string{}
	if len(f.keywords) > 0 {
		details["keywords"] = strings.Join(f.keywords, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
