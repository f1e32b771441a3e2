package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchProductPage_RejectsInvalidASIN(t *testing.T) {
	tests := []struct {
		name string
		asin string
	}{
		{"empty", ""},
		{"too short", "B0SHORT"},
		{"too long", "B0AAAAAAAA99"},
		{"lowercase", "b0aaaaaaaa"},
		{"punctuation", "B0AAAA-AA1"},
	}

	f := NewPageFetcher(nil, "", 3)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.FetchProductPage(context.Background(), tt.asin)
			assert.ErrorIs(t, err, ErrInvalidASIN)
		})
	}
}

func TestNewPageFetcher_Defaults(t *testing.T) {
	f := NewPageFetcher(nil, "", 0)

	assert.Equal(t, "https://www.amazon.in", f.baseURL)
	assert.Equal(t, 1, f.maxRetries)
}
