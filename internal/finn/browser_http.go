package finn

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spigell/finn-ranker/internal/utils"
	"go.uber.org/zap"
)

const contentEncoding = "gzip"

// HTTPBrowser fetches pages with plain GET requests. It only works while the
// site renders its state server side.
type HTTPBrowser struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	// SettleDelay is waited after every page to keep the request rate polite.
	SettleDelay time.Duration
}

func NewHTTPBrowser(logger *zap.Logger) *HTTPBrowser {
	return &HTTPBrowser{
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent: userAgent,
	}
}

func (b *HTTPBrowser) Name() string { return "http" }

func (b *HTTPBrowser) Open(context.Context) (Session, error) {
	return &httpSession{browser: b}, nil
}

type httpSession struct {
	browser *HTTPBrowser
}

func (s *httpSession) Scripts(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.browser.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	s.browser.logger.Debug("make request", zap.String("url", url))
	resp, err := s.browser.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		body = gz
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	var scripts []string
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		scripts = append(scripts, sel.Text())
	})

	return scripts, utils.WaitFor(ctx, s.browser.SettleDelay)
}

func (s *httpSession) Close() error { return nil }
