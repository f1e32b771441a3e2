package parser

import (
	"errors"

	"github.com/maltedev/amazon-pdp-exporter/internal/models"
)

// ErrNotProductPage is returned when the document is a CAPTCHA interstitial,
// an Amazon error page, or otherwise not a recognizable product page. Missing
// individual fields never produce an error.
var ErrNotProductPage = errors.New("not a recognizable product page")

type Parser interface {
	ParseProductPage(html string, asin string) (*models.ProductRecord, error)
}
