package models

import (
	"time"
)

// Extraction status values as they appear in the output sheet.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	// MaxBulletPoints is the number of feature bullets kept per product.
	MaxBulletPoints = 5
	// MaxImages is the number of unique gallery images kept per product.
	MaxImages = 7
)

// ProductRecord is one extracted product page, keyed by ASIN. A record is
// built once by the extractor and never mutated afterwards.
type ProductRecord struct {
	ASIN string `json:"asin"`

	Title        string `json:"title,omitempty"`
	Brand        string `json:"brand,omitempty"`
	MRP          string `json:"mrp,omitempty"`
	SellingPrice string `json:"selling_price,omitempty"`
	DealName     string `json:"deal_name,omitempty"`

	BulletPoints     []string          `json:"bullet_points,omitempty"`
	Description      string            `json:"description,omitempty"`
	TechnicalDetails map[string]string `json:"technical_details,omitempty"`
	VariationData    map[string]any    `json:"variation_data,omitempty"`
	BoxContents      string            `json:"box_contents,omitempty"`

	Rating         *float64 `json:"rating,omitempty"`
	ReviewCount    *int     `json:"review_count,omitempty"`
	QuestionCount  *int     `json:"question_count,omitempty"`
	BestSellerRank string   `json:"best_seller_rank,omitempty"`
	SellerName     string   `json:"seller_name,omitempty"`

	ImageURLs  []string `json:"image_urls,omitempty"`
	ImageCount int      `json:"image_count"`

	HasEBCContent bool `json:"has_ebc_content"`
	HasVideo      bool `json:"has_video"`

	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// NewRecord returns a record with only the ASIN populated.
func NewRecord(asin string) *ProductRecord {
	return &ProductRecord{
		ASIN:      asin,
		Status:    StatusSuccess,
		ScrapedAt: time.Now(),
	}
}

// NewErrorRecord returns the row emitted for an ASIN whose fetch or
// extraction failed. All product fields stay at their zero values.
func NewErrorRecord(asin string, err error) *ProductRecord {
	r := NewRecord(asin)
	r.Status = StatusError
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	return r
}

// Failed reports whether the record is an error row.
func (r *ProductRecord) Failed() bool {
	return r.Status == StatusError
}

func (r *ProductRecord) Validate() []string {
	var problems []string

	if r.ASIN == "" {
		problems = append(problems, "ASIN is required")
	}

	if len(r.BulletPoints) > MaxBulletPoints {
		problems = append(problems, "too many bullet points")
	}

	if len(r.ImageURLs) != r.ImageCount {
		problems = append(problems, "image count does not match image URLs")
	}

	seen := make(map[string]struct{}, len(r.ImageURLs))
	for _, u := range r.ImageURLs {
		if _, dup := seen[u]; dup {
			problems = append(problems, "duplicate image URL: "+u)
		}
		seen[u] = struct{}{}
	}

	return problems
}
