package extractor

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SYNC-360/kravet-scraper/internal/models"
)

func TestResolveSKU(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name string
		raw  models.RawFieldMap
		want string
	}{
		{
			name: "structured metadata beats url",
			raw:  models.RawFieldMap{models.FieldSKUItemprop: {"K-1001"}, models.FieldSKUFromURL: {"ABC-999"}},
			want: "K-1001",
		},
		{
			name: "json-ld beats retailer id and url",
			raw:  models.RawFieldMap{models.FieldSKUStructured: {"LD-7"}, models.FieldRetailerItemID: {"R-77"}, models.FieldSKUFromURL: {"ABC-999"}},
			want: "LD-7",
		},
		{
			name: "short candidates are skipped",
			raw:  models.RawFieldMap{models.FieldSKUItemprop: {"12"}, models.FieldSKUFromURL: {"34500-16"}},
			want: "34500-16",
		},
		{
			name: "label prefix stripped",
			raw:  models.RawFieldMap{models.FieldSKUElement: {"Item #: 34500.16"}},
			want: "34500.16",
		},
		{
			name: "sku label stripped",
			raw:  models.RawFieldMap{models.FieldSKUElement: {"sku: GWF-3201.10"}},
			want: "GWF-3201.10",
		},
		{
			name: "label without separator kept",
			raw:  models.RawFieldMap{models.FieldSKUElement: {"SKU12345"}},
			want: "SKU12345",
		},
		{
			name: "bare label falls through to url",
			raw:  models.RawFieldMap{models.FieldSKUElement: {"SKU:"}, models.FieldSKUFromURL: {"35567-4"}},
			want: "35567-4",
		},
		{
			name: "label around a short code falls through",
			raw:  models.RawFieldMap{models.FieldSKUElement: {"Item #: 12"}, models.FieldRetailerItemID: {"R-7788"}},
			want: "R-7788",
		},
		{
			name: "nothing usable",
			raw:  models.RawFieldMap{models.FieldSKUElement: {"ab"}},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.ResolveSKU(tt.raw))
		})
	}
}

func TestSKUFromURL(t *testing.T) {
	e := newTestExtractor(t)

	for raw, want := range map[string]string{
		"https://www.kravet.com/product/34500-16":      "34500-16",
		"https://www.kravet.com/product/34500-16/":     "34500-16",
		"https://www.kravet.com/34500.16.0.html":       "34500.16.0",
		"https://www.kravet.com/":                      "",
		"https://www.kravet.com/product/ravello%20red": "",
	} {
		u, _ := url.Parse(raw)
		assert.Equal(t, want, e.skuFromURL(u), raw)
	}
}
