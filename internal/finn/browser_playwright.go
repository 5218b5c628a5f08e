package finn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/spigell/finn-ranker/internal/utils"
	"go.uber.org/zap"
)

const scriptsJS = `() => Array.from(document.scripts, s => s.innerHTML)`

// PlaywrightBrowser drives a headless Chromium. The page state is only present
// after client side rendering, so every load is followed by SettleDelay.
type PlaywrightBrowser struct {
	logger *zap.Logger

	// ChromiumPath points at a system Chromium. Empty uses the bundled one.
	ChromiumPath string
	Headless     bool
	UserAgent    string
	PageTimeout  time.Duration
	SettleDelay  time.Duration
}

func NewPlaywrightBrowser(logger *zap.Logger) *PlaywrightBrowser {
	return &PlaywrightBrowser{
		logger:      logger,
		Headless:    true,
		UserAgent:   userAgent,
		PageTimeout: 30 * time.Second,
		SettleDelay: 3 * time.Second,
	}
}

func (b *PlaywrightBrowser) Name() string { return "playwright" }

func (b *PlaywrightBrowser) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(b.Headless),
		Args:     []string{"--no-sandbox", "--disable-dev-shm-usage"},
	}
	if b.ChromiumPath != "" {
		opts.ExecutablePath = playwright.String(b.ChromiumPath)
	}

	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		UserAgent: playwright.String(b.UserAgent),
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &playwrightSession{browser: b, pw: pw, chromium: browser, page: page}, nil
}

type playwrightSession struct {
	browser  *PlaywrightBrowser
	pw       *playwright.Playwright
	chromium playwright.Browser
	page     playwright.Page
}

func (s *playwrightSession) Scripts(ctx context.Context, url string) ([]string, error) {
	s.browser.logger.Debug("load page", zap.String("url", url))

	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.browser.PageTimeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("goto %s: %w", url, err)
	}

	if err := utils.WaitFor(ctx, s.browser.SettleDelay); err != nil {
		return nil, err
	}

	result, err := s.page.Evaluate(scriptsJS)
	if err != nil {
		return nil, fmt.Errorf("read scripts of %s: %w", url, err)
	}

	raw, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected scripts result %T: %w", result, ErrMarkup)
	}

	scripts := make([]string, 0, len(raw))
	for _, item := range raw {
		if text, ok := item.(string); ok {
			scripts = append(scripts, text)
		}
	}

	return scripts, nil
}

func (s *playwrightSession) Close() error {
	errs := []error{s.page.Close(), s.chromium.Close(), s.pw.Stop()}
	return errors.Join(errs...)
}
