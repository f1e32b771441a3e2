package scraper

import (
	"context"
	"errors"
)

var (
	ErrInvalidASIN = errors.New("invalid ASIN")
	ErrBlocked     = errors.New("blocked by Amazon anti-bot")
	ErrNavigation  = errors.New("navigation failed")
)

// Fetcher produces the rendered HTML of one product page. All failures are
// scoped to the single ASIN; the browser session stays usable.
type Fetcher interface {
	FetchProductPage(ctx context.Context, asin string) (string, error)
}
