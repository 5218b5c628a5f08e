package finn

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/spigell/finn-ranker/internal/jobs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Describe fetches the ad text of every listing without a description. At most
// DescribeWorkers ads are fetched at once. A failed fetch leaves the
// description empty. The result has the same order and length as the input.
func (c *Client) Describe(ctx context.Context, listings []jobs.Listing) []jobs.Listing {
	out := make([]jobs.Listing, len(listings))

	workers := c.DescribeWorkers
	if workers <= 0 {
		workers = defaultDescribeWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var failed int
	results := make([]error, len(listings))
	for i, listing := range listings {
		if listing.Description != "" || listing.URL == "" {
			out[i] = listing
			continue
		}

		g.Go(func() error {
			description, err := c.fetchDescription(gctx, listing.URL)
			results[i] = err
			out[i] = listing.WithDescription(description)
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range results {
		if err != nil {
			failed++
			c.logger.Debug("description not fetched", zap.String("url", listings[i].URL), zap.Error(err))
		}
	}
	if failed > 0 {
		c.logger.Warn("some descriptions are missing", zap.Int("failed", failed), zap.Int("listings", len(listings)))
	}

	return out
}

func (c *Client) fetchDescription(ctx context.Context, url string) (string, error) {
	timeout := c.DescribeTimeout
	if timeout <= 0 {
		timeout = defaultDescribeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	return articleText(doc)
}

// articleText renders the first <article> as markdown, falling back to its plain text.
func articleText(doc *goquery.Document) (string, error) {
	article := doc.Find("article").First()
	if article.Length() == 0 {
		return "", fmt.Errorf("no article element: %w", ErrMarkup)
	}

	article.Find("script, style, noscript, svg").Remove()

	html, err := article.Html()
	if err == nil {
		if md, err := htmltomarkdown.ConvertString(html); err == nil && strings.TrimSpace(md) != "" {
			return strings.TrimSpace(md), nil
		}
	}

	return strings.TrimSpace(article.Text()), nil
}
