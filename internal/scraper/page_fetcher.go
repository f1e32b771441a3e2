package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/amazon-pdp-exporter/internal/browser"
)

const productTitleSelector = "#productTitle, #title"

var asinPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// PageFetcher loads product pages over the shared browser session. One page
// is opened per ASIN and closed before the next fetch starts.
type PageFetcher struct {
	browser    *browser.Browser
	baseURL    string
	maxRetries int
	logger     *slog.Logger
}

func NewPageFetcher(b *browser.Browser, baseURL string, maxRetries int) *PageFetcher {
	if baseURL == "" {
		baseURL = "https://www.amazon.in"
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &PageFetcher{
		browser:    b,
		baseURL:    baseURL,
		maxRetries: maxRetries,
		logger:     slog.Default().With("component", "page_fetcher"),
	}
}

// FetchProductPage navigates to the product page for the ASIN, dismisses
// popups, waits for the title node to render and returns the page HTML.
func (f *PageFetcher) FetchProductPage(ctx context.Context, asin string) (string, error) {
	if !asinPattern.MatchString(asin) {
		return "", fmt.Errorf("%w: %q", ErrInvalidASIN, asin)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/dp/%s", f.baseURL, asin)
	f.logger.Info("fetching product page", "asin", asin, "url", url)

	page, err := f.browser.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if err := f.browser.NavigateWithRetry(page, url, f.maxRetries); err != nil {
		if errors.Is(err, browser.ErrCaptcha) {
			return "", fmt.Errorf("%w: %s", ErrBlocked, asin)
		}
		return "", fmt.Errorf("%w: %v", ErrNavigation, err)
	}

	f.browser.DismissPopups(page)
	f.browser.HumanizeInteraction(page)

	// The parser recognizes interstitials itself, so a missing title is not
	// fatal here; the wait just gives the gallery scripts time to settle.
	if err := page.Locator(productTitleSelector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(20000),
	}); err != nil {
		f.logger.Warn("product title did not appear", "asin", asin, "error", err)
	}

	time.Sleep(500 * time.Millisecond)

	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}

	return html, nil
}
