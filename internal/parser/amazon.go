package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/amazon-pdp-exporter/internal/models"
)

// DefaultImageSize is the resolution token written into every canonical
// image URL (._SL1500_.).
const DefaultImageSize = 1500

var (
	leadingFloatRe = regexp.MustCompile(`^\d+(?:\.\d+)?`)
	digitsRe       = regexp.MustCompile(`\d[\d,]*`)
	hasVideoRe     = regexp.MustCompile(`(?i)"hasVideo"\s*:\s*true`)
	bsrFallbackRe  = regexp.MustCompile(`#\d[\d,]* in [^<\n]+`)
)

// Selector fallback chains, tried in order until one yields text.
var (
	titleSelectors = []string{"#productTitle", "#title #productTitle", "#title"}

	mrpSelectors = []string{
		"#corePriceDisplay_desktop_feature_div .basisPrice .a-offscreen",
		"span.a-text-strike",
		"span.priceBlockStrikePriceString",
	}

	sellingPriceSelectors = []string{
		"#corePriceDisplay_desktop_feature_div .a-price .a-offscreen",
		"#pdp-ipr .a-price .a-offscreen",
		"#priceblock_dealprice",
		"#priceblock_ourprice",
		"#priceblock_saleprice",
		".a-price .a-offscreen",
	}

	dealNameSelectors = []string{
		"#dealBadge span",
		"span.dealBadgeText",
		"#dealBadgeBadgeType",
		"#dealPriceBadge",
		".savingsPercentage",
	}

	detailRowSelector = "#productDetails_techSpec_section_1 tr, " +
		"#productDetails_detailBullets_sections1 tr, .prodDetTable tr"

	ebcSelector   = "#aplus, .aplus, .aplus-module-wrapper"
	videoSelector = "#video-block, #ivImagesTab, #videoGallery, iframe[src*='amazon']"
)

// AmazonParser extracts a ProductRecord from a rendered product page. Every
// field lookup is independent; one selector missing never affects another.
type AmazonParser struct {
	imageSize int
}

func NewAmazonParser(imageSize int) *AmazonParser {
	if imageSize <= 0 {
		imageSize = DefaultImageSize
	}
	return &AmazonParser{imageSize: imageSize}
}

func (p *AmazonParser) ParseProductPage(html string, asin string) (*models.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if err := recognizeProductPage(doc); err != nil {
		return nil, err
	}

	record := models.NewRecord(asin)

	record.Title = firstText(doc, titleSelectors...)
	record.Brand = p.extractBrand(doc)
	record.BulletPoints = p.extractBullets(doc)
	record.Description = p.extractDescription(doc)
	record.MRP = firstText(doc, mrpSelectors...)
	record.SellingPrice = firstText(doc, sellingPriceSelectors...)
	record.DealName = firstText(doc, dealNameSelectors...)
	record.HasEBCContent = doc.Find(ebcSelector).Length() > 0
	record.HasVideo = doc.Find(videoSelector).Length() > 0 || hasVideoRe.MatchString(html)
	record.TechnicalDetails = p.extractTechnicalDetails(doc)
	record.VariationData = parseVariations(html)
	record.BoxContents = p.extractBoxContents(doc, record.BulletPoints)
	record.Rating = p.extractRating(doc)
	record.ReviewCount = p.extractReviewCount(doc)
	record.QuestionCount = p.extractQuestionCount(doc)
	record.BestSellerRank = p.extractBestSellerRank(doc, html)
	record.SellerName = p.extractSeller(doc)

	record.ImageURLs = collectImages(doc, html, p.imageSize, models.MaxImages)
	record.ImageCount = len(record.ImageURLs)

	return record, nil
}

// recognizeProductPage distinguishes a real product page from CAPTCHA
// interstitials and Amazon error pages.
func recognizeProductPage(doc *goquery.Document) error {
	if doc.Find(`form[action*="validateCaptcha"]`).Length() > 0 {
		return fmt.Errorf("%w: captcha interstitial", ErrNotProductPage)
	}

	pageTitle := strings.TrimSpace(doc.Find("title").First().Text())
	for _, marker := range []string{"Robot Check", "Sorry! Something went wrong", "Page Not Found"} {
		if strings.Contains(pageTitle, marker) {
			return fmt.Errorf("%w: %s", ErrNotProductPage, marker)
		}
	}

	bodyText := doc.Find("body").Text()
	if strings.Contains(bodyText, "Enter the characters you see below") ||
		strings.Contains(bodyText, "api-services-support@amazon.com") {
		return fmt.Errorf("%w: captcha interstitial", ErrNotProductPage)
	}

	if doc.Find("#productTitle, #title").Length() == 0 &&
		doc.Find("#dp, #dp-container, #ppd").Length() == 0 {
		return fmt.Errorf("%w: no product markup found", ErrNotProductPage)
	}

	return nil
}

func (p *AmazonParser) extractBrand(doc *goquery.Document) string {
	brand := firstText(doc, "#bylineInfo", "a#bylineInfo")
	brand = strings.TrimPrefix(brand, "Brand: ")
	brand = strings.TrimPrefix(brand, "Visit the ")
	brand = strings.TrimSuffix(brand, " Store")
	return strings.TrimSpace(brand)
}

func (p *AmazonParser) extractBullets(doc *goquery.Document) []string {
	var bullets []string
	doc.Find("#feature-bullets ul li span.a-list-item").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			bullets = append(bullets, text)
		}
		return len(bullets) < models.MaxBulletPoints
	})
	return bullets
}

func (p *AmazonParser) extractDescription(doc *goquery.Document) string {
	desc := collapseWhitespace(doc.Find("#productDescription, #productDescription_feature_div").First().Text())
	if desc != "" {
		return desc
	}
	return collapseWhitespace(doc.Find(ebcSelector).First().Text())
}

func (p *AmazonParser) extractTechnicalDetails(doc *goquery.Document) map[string]string {
	details := make(map[string]string)

	doc.Find(detailRowSelector).Each(func(_ int, row *goquery.Selection) {
		key := strings.TrimSpace(row.Find("th").First().Text())
		value := ""
		if key != "" {
			value = strings.TrimSpace(row.Find("td").First().Text())
		} else {
			key = strings.TrimSpace(row.Find("td.label").First().Text())
			value = strings.TrimSpace(row.Find("td.value").First().Text())
		}

		key = cleanDetailText(strings.TrimSuffix(key, ":"))
		value = cleanDetailText(value)
		if key != "" && value != "" {
			details[key] = value
		}
	})

	if len(details) == 0 {
		return nil
	}
	return details
}

func (p *AmazonParser) extractBoxContents(doc *goquery.Document, bullets []string) string {
	found := ""
	doc.Find(detailRowSelector).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		key := strings.ToLower(strings.TrimSpace(row.Find("th").First().Text()))
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(row.Find("td.label").First().Text()))
		}
		if strings.Contains(key, "in the box") || strings.Contains(key, "included") {
			value := strings.TrimSpace(row.Find("td.value").First().Text())
			if value == "" {
				value = strings.TrimSpace(row.Find("td").First().Text())
			}
			if value != "" {
				found = cleanDetailText(value)
				return false
			}
		}
		return true
	})
	if found != "" {
		return found
	}

	for _, bullet := range bullets {
		lb := strings.ToLower(bullet)
		if strings.Contains(lb, "in the box") || strings.HasPrefix(lb, "includes") {
			return bullet
		}
	}
	return ""
}

func (p *AmazonParser) extractRating(doc *goquery.Document) *float64 {
	// "4.3 out of 5 stars"
	text := strings.TrimSpace(doc.Find("span.a-icon-alt").First().Text())
	m := leadingFloatRe.FindString(text)
	if m == "" {
		return nil
	}
	rating, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &rating
}

func (p *AmazonParser) extractReviewCount(doc *goquery.Document) *int {
	return parseCount(doc.Find("#acrCustomerReviewText").First().Text())
}

func (p *AmazonParser) extractQuestionCount(doc *goquery.Document) *int {
	text := doc.Find("#askATFLink span").First().Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Find("#askATFLink").First().Text()
	}
	return parseCount(text)
}

func (p *AmazonParser) extractBestSellerRank(doc *goquery.Document, html string) string {
	rank := ""
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if !strings.Contains(row.Find("th").First().Text(), "Best Sellers Rank") {
			return true
		}
		if value := collapseWhitespace(row.Find("td").First().Text()); value != "" {
			rank = value
			return false
		}
		return true
	})
	if rank != "" {
		return rank
	}
	return bsrFallbackRe.FindString(html)
}

func (p *AmazonParser) extractSeller(doc *goquery.Document) string {
	if seller := strings.TrimSpace(doc.Find("#sellerProfileTriggerId").First().Text()); seller != "" {
		return seller
	}
	return firstText(doc, "#bylineInfo", "a#bylineInfo")
}

func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// parseCount pulls the first grouped integer out of texts like
// "1,234 ratings" or "72 answered questions".
func parseCount(text string) *int {
	m := digitsRe.FindString(text)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanDetailText strips the directional marks Amazon embeds in detail
// table cells.
func cleanDetailText(s string) string {
	s = strings.ReplaceAll(s, "‏", "")
	s = strings.ReplaceAll(s, "‎", "")
	return strings.TrimSpace(s)
}
