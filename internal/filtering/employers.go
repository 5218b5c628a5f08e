package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/finn-ranker/internal/jobs"
)

type employersFilter struct {
	disabled  bool
	reason    string
	employers []string
}

// NewEmployers creates a filter that removes listings of the configured
// employers. Names are compared ignoring case and diacritics.
func NewEmployers() Filter {
	return &employersFilter{}
}

func (f *employersFilter) Name() string { return "employers" }

func (f *employersFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *employersFilter) IsEnabled() bool { return !f.disabled }

func (f *employersFilter) Validate(cfg *Config) error {
	f.employers = nil
	if cfg != nil {
		f.employers = folded(cfg.Employers)
	}
	return nil
}

func (f *employersFilter) Apply(_ context.Context, deps Deps, l *jobs.Listings) (*jobs.Listings, Step, error) {
	initial := l.Len()
	if len(f.employers) == 0 {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	excluded := l.Exclude(func(listing jobs.Listing) bool {
		employer := jobs.Fold(listing.Employer)
		for _, e := range f.employers {
			if employer == e {
				return true
			}
		}
		return false
	})
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding listings by employers",
			zap.Strings("excluded_employers", f.employers),
			zap.Strings("excluded_listings", excluded),
			zap.Int("listings_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

func (f *employersFilter) Status() Status {
	details := map[string]string{}
	if len(f.employers) > 0 {
		details["employers"] = strings.Join(f.employers, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
