package jobs

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNoSuchOption is returned when a label does not match any option of a filter.
var ErrNoSuchOption = errors.New("no matching filter option")

// Option is one selectable value of a search filter. Location options nest
// counties under countries and municipalities under counties.
type Option struct {
	Label    string   `json:"label"`
	Value    string   `json:"value"`
	Children []Option `json:"children,omitempty"`
}

// FilterSet maps a filter name (location, occupation, industry, ...) to its options.
type FilterSet map[string][]Option

// Names returns the filter names that have at least one option.
func (fs FilterSet) Names() []string {
	names := make([]string, 0, len(fs))
	for name, options := range fs {
		if len(options) > 0 {
			names = append(names, name)
		}
	}
	return names
}

// Resolve finds the option values whose label matches label, ignoring case and
// diacritics. Exact matches win over partial ones, and shallower matches win over
// deeper ones, so "Oslo" picks the county rather than the municipality.
func (fs FilterSet) Resolve(name, label string) ([]string, error) {
	options, ok := fs[name]
	if !ok {
		return nil, fmt.Errorf("unknown filter %q: %w", name, ErrNoSuchOption)
	}

	needle := Fold(label)
	if needle == "" {
		return nil, fmt.Errorf("empty label for filter %q: %w", name, ErrNoSuchOption)
	}

	for _, exact := range []bool{true, false} {
		level := options
		for len(level) > 0 {
			var matches []string
			var next []Option
			for _, option := range level {
				folded := Fold(option.Label)
				if (exact && folded == needle) || (!exact && strings.Contains(folded, needle)) {
					matches = append(matches, option.Value)
				}
				next = append(next, option.Children...)
			}
			if len(matches) > 0 {
				return matches, nil
			}
			level = next
		}
	}

	return nil, fmt.Errorf("%q in filter %q: %w", label, name, ErrNoSuchOption)
}

// Flatten lists every option of a filter depth first, prefixing nested labels
// with their parents, e.g. "Norge / Oslo / Oslo".
func (fs FilterSet) Flatten(name string) []Option {
	var flat []Option
	var walk func(prefix string, options []Option)
	walk = func(prefix string, options []Option) {
		for _, option := range options {
			label := option.Label
			if prefix != "" {
				label = prefix + " / " + label
			}
			flat = append(flat, Option{Label: label, Value: option.Value})
			walk(label, option.Children)
		}
	}
	walk("", fs[name])
	return flat
}

var foldLetters = runes.Map(func(r rune) rune {
	switch r {
	case 'ø', 'Ø':
		return 'o'
	case 'æ', 'Æ':
		return 'a'
	case 'đ', 'Đ':
		return 'd'
	}
	return r
})

// Fold lowercases s and strips diacritics so "Tromsø" and "tromso" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), foldLetters, norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(folded)), " ")
}

// HasValue reports whether value is the value of any option of the filter.
func (fs FilterSet) HasValue(name, value string) bool {
	var walk func(options []Option) bool
	walk = func(options []Option) bool {
		for _, option := range options {
			if option.Value == value || walk(option.Children) {
				return true
			}
		}
		return false
	}
	return walk(fs[name])
}

// ResolveLabels replaces option labels in f with option values, so both
// {"location": "Oslo"} and {"location": "1.20001.20061"} select the same county.
// Values of filters the set does not know are kept as given.
func (fs FilterSet) ResolveLabels(f SearchFilters) (SearchFilters, error) {
	out := f
	var err error

	if out.Locations, err = fs.resolveAll("location", f.Locations); err != nil {
		return f, err
	}
	if out.Occupations, err = fs.resolveAll("occupation", f.Occupations); err != nil {
		return f, err
	}
	if out.Industries, err = fs.resolveAll("industry", f.Industries); err != nil {
		return f, err
	}
	if out.JobTypes, err = fs.resolveAll("job_type", f.JobTypes); err != nil {
		return f, err
	}

	if len(f.Extra) > 0 {
		out.Extra = make(map[string][]string, len(f.Extra))
		for name, values := range f.Extra {
			if out.Extra[name], err = fs.resolveAll(name, values); err != nil {
				return f, err
			}
		}
	}

	return out, nil
}

func (fs FilterSet) resolveAll(name string, values []string) ([]string, error) {
	if _, known := fs[name]; !known || len(values) == 0 {
		return values, nil
	}

	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	for _, v := range values {
		if fs.HasValue(name, v) {
			add(v)
			continue
		}
		resolved, err := fs.Resolve(name, v)
		if err != nil {
			return nil, err
		}
		for _, r := range resolved {
			add(r)
		}
	}

	return out, nil
}
