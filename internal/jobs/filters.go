package jobs

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"
)

// SearchFilters holds the user's search constraints. Values are the site's
// option values, not labels.
type SearchFilters struct {
	Query string `param:"q"`
	// param is the query string key used by the site. Please see Values below.
	Locations   []string `param:"location"`
	Occupations []string `param:"occupation"`
	Industries  []string `param:"industry"`
	JobTypes    []string `param:"job_type"`
	// Extra carries any other site filter by its query key.
	Extra map[string][]string `param:"-"`
}

// locationAliases are accepted on input and folded into Locations.
var locationAliases = map[string]bool{"county": true, "municipality": true}

// pageParam is owned by the scraper and never taken from user input.
const pageParam = "page"

// Values builds the query string for the filters. Empty values are skipped.
func (f SearchFilters) Values() url.Values {
	q := url.Values{}
	v := reflect.ValueOf(f)
	for _, field := range reflect.VisibleFields(v.Type()) {
		key := field.Tag.Get("param")
		if key == "" || key == "-" {
			continue
		}
		switch value := v.FieldByIndex(field.Index).Interface().(type) {
		case string:
			if value = strings.TrimSpace(value); value != "" {
				q.Set(key, value)
			}
		case []string:
			for _, item := range value {
				if item = strings.TrimSpace(item); item != "" {
					q.Add(key, item)
				}
			}
		}
	}

	keys := make([]string, 0, len(f.Extra))
	for key := range f.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key == pageParam {
			continue
		}
		for _, item := range f.Extra[key] {
			if item = strings.TrimSpace(item); item != "" {
				q.Add(key, item)
			}
		}
	}

	return q
}

// IsEmpty reports whether no constraint is set.
func (f SearchFilters) IsEmpty() bool {
	return len(f.Values()) == 0
}

var optionValuePattern = regexp.MustCompile(`^\d+(\.\d+)*$`)

// HasLabels reports whether any filter value is not shaped like an option
// value ("1.20001.20061"), i.e. may be a label that needs resolving.
func (f SearchFilters) HasLabels() bool {
	for key, values := range f.Values() {
		if key == "q" {
			continue
		}
		for _, v := range values {
			if !optionValuePattern.MatchString(v) {
				return true
			}
		}
	}
	return false
}

// UnmarshalJSON accepts a flat object such as {"q": "go", "location": ["0.20061"]}.
// Every value may be a string or a list of strings.
func (f *SearchFilters) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*f = SearchFilters{}
	fields := f.fieldsByParam()

	for key, msg := range raw {
		values, err := decodeValues(msg)
		if err != nil {
			return fmt.Errorf("filter %q: %w", key, err)
		}
		if len(values) == 0 {
			continue
		}

		if locationAliases[key] {
			key = "location"
		}

		target, ok := fields[key]
		if !ok {
			if f.Extra == nil {
				f.Extra = make(map[string][]string)
			}
			f.Extra[key] = append(f.Extra[key], values...)
			continue
		}

		switch target.Kind() {
		case reflect.String:
			target.SetString(strings.Join(values, " "))
		case reflect.Slice:
			current := target.Interface().([]string)
			target.Set(reflect.ValueOf(append(current, values...)))
		}
	}

	return nil
}

// MarshalJSON writes the filters back as the flat object accepted by UnmarshalJSON.
func (f SearchFilters) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	for key, values := range f.Values() {
		if key == "q" {
			out[key] = values[0]
			continue
		}
		out[key] = values
	}
	return json.Marshal(out)
}

func (f *SearchFilters) fieldsByParam() map[string]reflect.Value {
	v := reflect.ValueOf(f).Elem()
	fields := make(map[string]reflect.Value)
	for _, field := range reflect.VisibleFields(v.Type()) {
		key := field.Tag.Get("param")
		if key == "" || key == "-" {
			continue
		}
		fields[key] = v.FieldByIndex(field.Index)
	}
	return fields
}

func decodeValues(msg json.RawMessage) ([]string, error) {
	var single any
	if err := json.Unmarshal(msg, &single); err != nil {
		return nil, err
	}

	switch typed := single.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(typed) == "" {
			return nil, nil
		}
		return []string{typed}, nil
	case float64, bool:
		return []string{fmt.Sprint(typed)}, nil
	case []any:
		values := make([]string, 0, len(typed))
		for _, item := range typed {
			switch v := item.(type) {
			case string:
				if strings.TrimSpace(v) != "" {
					values = append(values, v)
				}
			case float64, bool:
				values = append(values, fmt.Sprint(v))
			default:
				return nil, fmt.Errorf("unsupported list item %T", item)
			}
		}
		return values, nil
	default:
		return nil, fmt.Errorf("unsupported value %T", single)
	}
}
