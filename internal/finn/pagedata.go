package finn

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMarkup means the page no longer looks the way the scraper expects.
var ErrMarkup = errors.New("unexpected page markup")

// decodePageData picks the largest script on the page, which carries the
// search state as base64 encoded JSON, and returns queries[0].state.data.
func decodePageData(scripts []string) (map[string]interface{}, error) {
	var biggest string
	for _, script := range scripts {
		script = strings.TrimSpace(script)
		if len(script) > len(biggest) {
			biggest = script
		}
	}
	if biggest == "" {
		return nil, fmt.Errorf("no script with page state: %w", ErrMarkup)
	}

	decoded, err := base64.StdEncoding.DecodeString(biggest)
	if err != nil {
		if decoded, err = base64.RawStdEncoding.DecodeString(biggest); err != nil {
			return nil, fmt.Errorf("page state is not base64: %w", ErrMarkup)
		}
	}

	var page map[string]interface{}
	if err := json.Unmarshal(decoded, &page); err != nil {
		return nil, fmt.Errorf("page state is not json: %w", ErrMarkup)
	}

	queries, ok := page["queries"].([]interface{})
	if !ok || len(queries) == 0 {
		return nil, fmt.Errorf("page state has no queries: %w", ErrMarkup)
	}

	data, ok := dig(queries[0], "state", "data").(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("page state has no query data: %w", ErrMarkup)
	}

	return data, nil
}

func dig(v interface{}, path ...string) interface{} {
	for _, key := range path {
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

// loadState opens url in the session and decodes its search state.
func (c *Client) loadState(ctx context.Context, session Session, url string) (map[string]interface{}, error) {
	scripts, err := session.Scripts(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", url, err)
	}

	data, err := decodePageData(scripts)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}

	return data, nil
}
