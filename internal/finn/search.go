package finn

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/finn-ranker/internal/jobs"
	"go.uber.org/zap"
)

const (
	docTypeJob = "job"
	pageParam  = "page"
)

type rawDoc struct {
	ID           string
	Type         string
	JobTitle     string `mapstructure:"job_title"`
	Heading      string
	CompanyName  string `mapstructure:"company_name"`
	Location     string
	CanonicalURL string      `mapstructure:"canonical_url"`
	Deadline     interface{}
	Published    *time.Time
}

type rawSearch struct {
	Docs     []rawDoc
	Metadata struct {
		Paging struct {
			Last int
		}
	}
}

// Search loads every result page for filters in one browser session and
// returns the job listings in site order. Any page failure fails the search.
func (c *Client) Search(ctx context.Context, filters jobs.SearchFilters) (*jobs.Listings, error) {
	q := filters.Values()

	session, err := c.browser.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	listings := jobs.NewListings()

	response, err := c.searchPage(ctx, session, q, 1)
	if err != nil {
		return nil, err
	}
	listings.Items = append(listings.Items, c.toListings(response.Docs)...)

	last := response.Metadata.Paging.Last
	c.logger.Debug("got first result page", zap.Int("pages", last), zap.Int("listings", listings.Len()))

	for page := 2; page <= last; page++ {
		if c.MaxPages > 0 && page > c.MaxPages {
			c.logger.Warn("page limit reached, remaining pages skipped",
				zap.Int("max_pages", c.MaxPages), zap.Int("pages", last))
			break
		}

		c.logger.Debug("additional request needed", zap.String("reason", fmt.Sprintf(
			"current page (%d) < all page count (%d)", page-1, last),
		))

		response, err = c.searchPage(ctx, session, q, page)
		if err != nil {
			return nil, err
		}
		listings.Items = append(listings.Items, c.toListings(response.Docs)...)
	}

	c.logger.Info("search finished", zap.Int("listings", listings.Len()))

	return listings, nil
}

func (c *Client) searchPage(ctx context.Context, session Session, q map[string][]string, page int) (*rawSearch, error) {
	values := make(map[string][]string, len(q)+1)
	for k, v := range q {
		values[k] = v
	}
	if page > 1 {
		values[pageParam] = []string{strconv.Itoa(page)}
	}

	data, err := c.loadState(ctx, session, c.searchURL(values))
	if err != nil {
		return nil, err
	}

	return parseSearch(data)
}

func parseSearch(data map[string]interface{}) (*rawSearch, error) {
	if _, ok := data["docs"]; !ok {
		return nil, fmt.Errorf("page state has no docs: %w", ErrMarkup)
	}

	var response rawSearch
	if err := weakDecode(data, &response); err != nil {
		return nil, fmt.Errorf("decode docs: %v: %w", err, ErrMarkup)
	}

	return &response, nil
}

func (c *Client) toListings(docs []rawDoc) []jobs.Listing {
	listings := make([]jobs.Listing, 0, len(docs))
	for _, doc := range docs {
		if doc.Type != docTypeJob {
			continue
		}

		title := doc.JobTitle
		if title == "" {
			title = doc.Heading
		}

		link := doc.CanonicalURL
		if link == "" {
			link = c.adURL(doc.ID)
		}

		listings = append(listings, jobs.Listing{
			ID:        doc.ID,
			Title:     title,
			Employer:  doc.CompanyName,
			Location:  doc.Location,
			URL:       link,
			Deadline:  formatDeadline(doc.Deadline),
			Published: doc.Published,
		})
	}
	return listings
}

// formatDeadline keeps text deadlines ("Snarest") and turns epoch millis into dates.
func formatDeadline(v interface{}) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return time.UnixMilli(int64(typed)).UTC().Format(time.DateOnly)
	default:
		return ""
	}
}

var timeType = reflect.TypeOf(time.Time{})

// timeHook decodes epoch millis, epoch millis as text and RFC 3339 strings into time.Time.
func timeHook(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != timeType {
		return data, nil
	}

	switch typed := data.(type) {
	case float64:
		return time.UnixMilli(int64(typed)).UTC(), nil
	case string:
		typed = strings.TrimSpace(typed)
		if millis, err := strconv.ParseInt(typed, 10, 64); err == nil {
			return time.UnixMilli(millis).UTC(), nil
		}
		parsed, err := time.Parse(time.RFC3339, typed)
		if err != nil {
			return nil, fmt.Errorf("parse time %q: %w", typed, err)
		}
		return parsed, nil
	default:
		return data, nil
	}
}
