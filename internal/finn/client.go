package finn

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spigell/finn-ranker/internal/cache"
	"github.com/spigell/finn-ranker/internal/jobs"
	"go.uber.org/zap"
)

const (
	baseURL    = "https://www.finn.no"
	searchPath = "/job/search"
	adPath     = "/job/ad/"
	userAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	defaultDescribeWorkers = 8
	defaultDescribeTimeout = 10 * time.Second
)

var _ jobs.Source = (*Client)(nil)

type Client struct {
	logger  *zap.Logger
	browser Browser

	// HTTPClient is used for ad pages. Redirects are followed.
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string

	Cache    cache.Store
	CacheTTL time.Duration

	// MaxPages caps result pages per search. Zero means every page.
	MaxPages        int
	DescribeWorkers int
	DescribeTimeout time.Duration
}

func New(logger *zap.Logger, browser Browser) *Client {
	return &Client{
		logger:  logger,
		browser: browser,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent:       userAgent,
		BaseURL:         baseURL,
		Cache:           cache.NewMemory(),
		CacheTTL:        6 * time.Hour,
		DescribeWorkers: defaultDescribeWorkers,
		DescribeTimeout: defaultDescribeTimeout,
	}
}

func (c *Client) searchURL(q url.Values) string {
	u := strings.TrimRight(c.BaseURL, "/") + searchPath
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

func (c *Client) adURL(id string) string {
	return strings.TrimRight(c.BaseURL, "/") + adPath + id
}
