package models

import "strings"

// RawFieldMap is the loosely keyed output of page extraction. Keys carry
// origin-specific labels; every value is kept as a list so single and
// multi-valued fields share one shape.
type RawFieldMap map[string][]string

// Raw field labels written by the extractor.
const (
	FieldSKU             = "sku"
	FieldSKUItemprop     = "sku_itemprop"
	FieldSKUElement      = "sku_element"
	FieldSKUStructured   = "sku_jsonld"
	FieldRetailerItemID  = "retailer_item_id"
	FieldSKUFromURL      = "sku_from_url"
	FieldName            = "name"
	FieldBrand           = "brand"
	FieldCollection      = "collection"
	FieldPattern         = "pattern"
	FieldColorway        = "colorway"
	FieldDescription     = "description"
	FieldPriceText       = "price_text"
	FieldTradePrice      = "trade_price"
	FieldRetailPrice     = "retail_price"
	FieldPriceUnit       = "price_unit"
	FieldPrimaryImage    = "primary_image"
	FieldImages          = "images"
	FieldAvailability    = "availability_text"
	FieldDiscontinued    = "discontinued_flag"
	FieldCertifications  = "certifications"
	FieldCoordinates     = "coordinates"
	FieldMetaDescription = "meta_description"
	FieldMetaKeywords    = "meta_keywords"
	FieldCanonicalURL    = "canonical_url"
	FieldStructuredData  = "structured_data"

	// SpecPrefix marks specification rows: "spec:<label>".
	SpecPrefix = "spec:"
)

// Set replaces the values stored under key. Empty values are dropped and
// an all-empty set removes the key.
func (m RawFieldMap) Set(key string, values ...string) {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(m, key)
		return
	}
	m[key] = kept
}

// Add appends values to key.
func (m RawFieldMap) Add(key string, values ...string) {
	m.Set(key, append(append([]string(nil), m[key]...), values...)...)
}

func (m RawFieldMap) First(key string) string {
	if vals := m[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func (m RawFieldMap) List(key string) []string {
	return m[key]
}

func (m RawFieldMap) Has(key string) bool {
	return len(m[key]) > 0
}

// Specs returns the specification rows with the prefix stripped.
func (m RawFieldMap) Specs() map[string]string {
	specs := make(map[string]string)
	for k, v := range m {
		if label, ok := strings.CutPrefix(k, SpecPrefix); ok && len(v) > 0 {
			specs[label] = v[len(v)-1]
		}
	}
	return specs
}
