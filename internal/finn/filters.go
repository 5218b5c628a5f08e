package finn

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/finn-ranker/internal/cache"
	"github.com/spigell/finn-ranker/internal/jobs"
	"go.uber.org/zap"
)

const locationFilter = "location"

// locationDepth is country, county and municipality.
const locationDepth = 3

type rawFilter struct {
	Name        string
	FilterItems []rawFilterItem `mapstructure:"filter_items"`
}

type rawFilterItem struct {
	DisplayName string          `mapstructure:"display_name"`
	Value       string
	FilterItems []rawFilterItem `mapstructure:"filter_items"`
}

// Filters loads the filter vocabulary from the search page. Results are cached
// for CacheTTL.
func (c *Client) Filters(ctx context.Context) (jobs.FilterSet, error) {
	key := cache.Key("filters", c.BaseURL)

	var cached jobs.FilterSet
	if c.Cache != nil {
		ok, err := cache.GetJSON(ctx, c.Cache, key, &cached)
		if err != nil {
			c.logger.Warn("filters cache read failed", zap.Error(err))
		}
		if ok {
			c.logger.Debug("filters served from cache")
			return cached, nil
		}
	}

	session, err := c.browser.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	data, err := c.loadState(ctx, session, c.searchURL(nil))
	if err != nil {
		return nil, err
	}

	set, err := parseFilters(data)
	if err != nil {
		return nil, err
	}

	c.logger.Info("filters loaded", zap.Int("filters", len(set)))

	if c.Cache != nil {
		if err := cache.SetJSON(ctx, c.Cache, key, set, c.CacheTTL); err != nil {
			c.logger.Warn("filters cache write failed", zap.Error(err))
		}
	}

	return set, nil
}

func parseFilters(data map[string]interface{}) (jobs.FilterSet, error) {
	items, ok := data["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("page state has no filters: %w", ErrMarkup)
	}

	var raw []rawFilter
	if err := weakDecode(items, &raw); err != nil {
		return nil, fmt.Errorf("decode filters: %v: %w", err, ErrMarkup)
	}

	set := make(jobs.FilterSet, len(raw))
	for _, filter := range raw {
		if filter.Name == "" || len(filter.FilterItems) == 0 {
			continue
		}

		depth := 1
		if filter.Name == locationFilter {
			depth = locationDepth
		}
		set[filter.Name] = toOptions(filter.FilterItems, depth)
	}

	return set, nil
}

func toOptions(items []rawFilterItem, depth int) []jobs.Option {
	options := make([]jobs.Option, 0, len(items))
	for _, item := range items {
		option := jobs.Option{Label: item.DisplayName, Value: item.Value}
		if depth > 1 && len(item.FilterItems) > 0 {
			option.Children = toOptions(item.FilterItems, depth-1)
		}
		options = append(options, option)
	}
	return options
}

func weakDecode(input, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       timeHook,
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
