// Package normalizer maps raw extracted fields onto the canonical product
// record.
package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/SYNC-360/kravet-scraper/internal/brand"
	"github.com/SYNC-360/kravet-scraper/internal/extractor"
	"github.com/SYNC-360/kravet-scraper/internal/models"
)

// Rejection is returned when a raw field map has no usable identity.
type Rejection struct {
	URL    string
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("record rejected: %s (%s)", r.Reason, r.URL)
}

// synonyms lists accepted labels per canonical field, most specific first.
// Labels match raw keys and specification labels case-insensitively.
var synonyms = map[string][]string{
	models.FieldSKU:         {models.FieldSKU, "vendor_item_id", "item_number"},
	models.FieldName:        {models.FieldName, "title", "product_name", "product name"},
	models.FieldBrand:       {models.FieldBrand, "brand_name", "manufacturer"},
	models.FieldCollection:  {models.FieldCollection, "collection_name", "collection name", "book"},
	models.FieldPattern:     {models.FieldPattern, "pattern_name", "pattern name", "design"},
	models.FieldColorway:    {models.FieldColorway, "color", "colour", "color_name", "color name"},
	models.FieldDescription: {models.FieldDescription, "product_description", "details"},
}

// consumed are raw keys with a first-class slot; everything else except
// specification rows ends up in Extras.
var consumed = map[string]bool{
	models.FieldSKUItemprop:     true,
	models.FieldSKUElement:      true,
	models.FieldSKUStructured:   true,
	models.FieldRetailerItemID:  true,
	models.FieldSKUFromURL:      true,
	models.FieldPriceText:       true,
	models.FieldTradePrice:      true,
	models.FieldRetailPrice:     true,
	models.FieldPriceUnit:       true,
	models.FieldPrimaryImage:    true,
	models.FieldImages:          true,
	models.FieldAvailability:    true,
	models.FieldDiscontinued:    true,
	models.FieldCertifications:  true,
	models.FieldCoordinates:     true,
	models.FieldMetaDescription: true,
	models.FieldMetaKeywords:    true,
	models.FieldCanonicalURL:    true,
	models.FieldStructuredData:  true,
}

// Normalize builds the canonical record for one product page. The SKU is the
// only required field: a missing or too-short SKU yields a *Rejection. The
// result depends only on its inputs.
func Normalize(raw models.RawFieldMap, brandKey, url string) (*models.ProductRecord, error) {
	idx := newLabelIndex(raw)
	used := make(map[string]bool)

	sku := idx.lookup(models.FieldSKU, used)
	switch {
	case sku == "":
		return nil, &Rejection{URL: url, Reason: "missing sku"}
	case len(sku) < models.MinSKULength:
		return nil, &Rejection{URL: url, Reason: fmt.Sprintf("sku %q shorter than %d characters", sku, models.MinSKULength)}
	}

	record := &models.ProductRecord{
		SKU:         sku,
		URL:         url,
		BrandKey:    brandKey,
		Name:        idx.lookup(models.FieldName, used),
		Collection:  idx.lookup(models.FieldCollection, used),
		Pattern:     idx.lookup(models.FieldPattern, used),
		Colorway:    idx.lookup(models.FieldColorway, used),
		Description: idx.lookup(models.FieldDescription, used),
		TradePrice:  parseAmount(raw.First(models.FieldTradePrice)),
		RetailPrice: parseAmount(raw.First(models.FieldRetailPrice)),
		PriceUnit:   strings.ToLower(raw.First(models.FieldPriceUnit)),
		PriceText:   raw.First(models.FieldPriceText),

		MetaDescription: raw.First(models.FieldMetaDescription),
		MetaKeywords:    raw.First(models.FieldMetaKeywords),
		CanonicalURL:    raw.First(models.FieldCanonicalURL),
		StructuredData:  compactJSON(raw.First(models.FieldStructuredData)),
	}
	record.Brand = resolveBrandName(brandKey, idx.lookup(models.FieldBrand, used))
	if record.PriceUnit == "" {
		record.PriceUnit = models.DefaultPriceUnit
	}

	record.Images = extractor.OrderImages(raw.First(models.FieldPrimaryImage), raw.List(models.FieldImages))
	if len(record.Images) > 0 {
		record.PrimaryImage = record.Images[0]
		record.ImageURL = record.PrimaryImage
	}

	record.Specifications = raw.Specs()
	groups := extractor.GroupSpecifications(record.Specifications)
	record.TechDetails = groups.TechDetails
	record.PerformanceData = groups.PerformanceData
	record.Flammability = groups.Flammability
	record.Certifications = union(raw.List(models.FieldCertifications), groups.Certifications)
	record.Coordinates = union(raw.List(models.FieldCoordinates))

	record.Availability = extractor.ParseAvailability(raw.First(models.FieldAvailability))
	if strings.EqualFold(raw.First(models.FieldDiscontinued), "true") {
		record.Availability.Status = models.StatusDiscontinued
	}

	record.Extras = extras(raw, used)

	return record, nil
}

// resolveBrandName prefers the brand table, then the page text, then the key.
func resolveBrandName(key, extracted string) string {
	if name := brand.DisplayName(key); name != "" {
		return name
	}
	if extracted != "" {
		return extracted
	}
	return key
}

// labelIndex answers case-insensitive lookups over raw keys and
// specification labels.
type labelIndex struct {
	keys  map[string]string
	specs map[string]string
	raw   models.RawFieldMap
}

func newLabelIndex(raw models.RawFieldMap) *labelIndex {
	idx := &labelIndex{
		keys:  make(map[string]string),
		specs: make(map[string]string),
		raw:   raw,
	}
	sorted := make([]string, 0, len(raw))
	for k := range raw {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	for _, k := range sorted {
		if label, ok := strings.CutPrefix(k, models.SpecPrefix); ok {
			if _, dup := idx.specs[strings.ToLower(label)]; !dup {
				idx.specs[strings.ToLower(label)] = k
			}
			continue
		}
		if _, dup := idx.keys[strings.ToLower(k)]; !dup {
			idx.keys[strings.ToLower(k)] = k
		}
	}
	return idx
}

// lookup returns the first value found for field's synonyms, checking raw
// keys before specification labels. The raw key used is recorded in used.
func (idx *labelIndex) lookup(field string, used map[string]bool) string {
	for _, pool := range []map[string]string{idx.keys, idx.specs} {
		for _, label := range synonyms[field] {
			key, ok := pool[strings.ToLower(label)]
			if !ok {
				continue
			}
			if v := idx.raw.First(key); v != "" {
				used[key] = true
				return v
			}
		}
	}
	return ""
}

func parseAmount(s string) *float64 {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

func compactJSON(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return nil
	}
	return json.RawMessage(buf.Bytes())
}

// union concatenates lists, dropping blanks and repeats. It never returns nil.
func union(lists ...[]string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, v := range list {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func extras(raw models.RawFieldMap, used map[string]bool) map[string][]string {
	out := make(map[string][]string)
	for k, v := range raw {
		if used[k] || consumed[k] || strings.HasPrefix(k, models.SpecPrefix) {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
