// Package extractor reads rendered catalog pages into raw field maps.
//
// Markup differs between brands and templates, so every field is looked up
// through an ordered list of strategies and the first one that yields a value
// wins. A field that no strategy finds is simply absent from the result.
package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/SYNC-360/kravet-scraper/internal/models"
)

type Extractor struct {
	base *url.URL

	priceNumber *regexp.Regexp
	priceUnit   *regexp.Regexp
	tradeLabel  *regexp.Regexp
	retailLabel *regexp.Regexp
	skuFromPath *regexp.Regexp
	skuLabel    *regexp.Regexp
}

// New returns an extractor that resolves relative links against baseOrigin.
func New(baseOrigin string) (*Extractor, error) {
	base, err := url.Parse(baseOrigin)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base origin: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base origin must be absolute: %q", baseOrigin)
	}

	return &Extractor{
		base:        base,
		priceNumber: regexp.MustCompile(`\$?\s*(\d[\d,]*(?:\.\d+)?)`),
		priceUnit:   regexp.MustCompile(`(?i)\bper\s+([a-z]+)`),
		tradeLabel:  regexp.MustCompile(`(?i)\b(trade|net|your\s+price)\b`),
		retailLabel: regexp.MustCompile(`(?i)\b(retail|list|msrp)\b`),
		skuFromPath: regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`),
		skuLabel:    regexp.MustCompile(`(?i)^\s*(?:sku|item(?:\s*(?:#|no\.?|number))?|style|product\s*id)(?:\s*[:#]\s*|\s+)`),
	}, nil
}

// Extract reads one product page. It never fails on missing fields; the
// only error is unparseable HTML.
func (e *Extractor) Extract(page *models.Page) (models.RawFieldMap, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	pageURL := e.pageURL(page.URL)
	raw := make(models.RawFieldMap)
	ld := e.structuredProduct(doc)

	// identity
	raw.Set(models.FieldSKUItemprop, firstOf(doc,
		attrOf(`meta[itemprop="sku"]`, "content"),
		textOf(`[itemprop="sku"]`),
	))
	raw.Set(models.FieldSKUElement, firstOf(doc,
		textOf(`.product-sku`),
		textOf(`.sku-value`),
		textOf(`.product-info-main .sku .value`),
		textOf(`.product-info-main .value`),
	))
	if ld != nil {
		raw.Set(models.FieldSKUStructured, ld.sku())
		raw.Set(models.FieldStructuredData, string(ld.raw))
	}
	raw.Set(models.FieldRetailerItemID, firstOf(doc,
		attrOf(`meta[property="product:retailer_item_id"]`, "content"),
		attrOf(`meta[name="product:retailer_item_id"]`, "content"),
	))
	raw.Set(models.FieldSKUFromURL, e.skuFromURL(pageURL))
	raw.Set(models.FieldSKU, e.ResolveSKU(raw))

	// descriptive
	raw.Set(models.FieldName, firstOf(doc,
		textOf(`h1.page-title`),
		textOf(`h1.product-name`),
		textOf(`[itemprop="name"]`),
		ld.field(func(p *ldProduct) string { return p.Name }),
		attrOf(`meta[property="og:title"]`, "content"),
	))
	raw.Set(models.FieldBrand, firstOf(doc,
		textOf(`.product-brand`),
		textOf(`.brand-name`),
		ld.field(func(p *ldProduct) string { return p.brandName() }),
	))
	raw.Set(models.FieldCollection, firstOf(doc, textOf(`.product-collection`), textOf(`.collection-name`)))
	raw.Set(models.FieldPattern, firstOf(doc, textOf(`.product-pattern`), textOf(`.pattern-name`)))
	raw.Set(models.FieldColorway, firstOf(doc, textOf(`.product-colorway`), textOf(`.color-name`)))
	raw.Set(models.FieldDescription, firstOf(doc,
		textOf(`.product.attribute.description .value`),
		textOf(`[itemprop="description"]`),
		textOf(`.product-description`),
		ld.field(func(p *ldProduct) string { return p.Description }),
	))

	// pricing
	priceTexts := e.priceTexts(doc)
	if len(priceTexts) == 0 && ld != nil {
		if price := ld.offerPrice(); price != "" {
			priceTexts = append(priceTexts, "$"+price)
		}
	}
	split := e.SplitPrices(priceTexts)
	raw.Set(models.FieldPriceText, split.Text)
	raw.Set(models.FieldTradePrice, split.Trade)
	raw.Set(models.FieldRetailPrice, split.Retail)
	raw.Set(models.FieldPriceUnit, split.Unit)

	// media
	primary := e.primaryImage(doc, pageURL)
	if primary == "" && ld != nil {
		primary = e.firstUsableImage(pageURL, ld.images())
	}
	images := OrderImages(primary, e.collectImages(doc, pageURL))
	if primary == "" && len(images) > 0 {
		primary = images[0]
	}
	raw.Set(models.FieldPrimaryImage, primary)
	raw.Set(models.FieldImages, images...)

	// specifications
	for label, value := range e.collectSpecs(doc) {
		raw.Set(models.SpecPrefix+label, value)
	}
	raw.Set(models.FieldCertifications, textsOf(doc, `.product-certifications li, .certifications li, .certification-badge`)...)
	raw.Set(models.FieldCoordinates, e.coordinates(doc, pageURL)...)

	// availability
	availability := strings.Join(textsOf(doc, `.stock, .availability, [data-availability], .product-availability`), " ")
	if availability == "" && ld != nil {
		availability = ld.availabilityText()
	}
	raw.Set(models.FieldAvailability, availability)
	if doc.Find(`.discontinued, .product-discontinued, [data-discontinued="true"]`).Length() > 0 {
		raw.Set(models.FieldDiscontinued, "true")
	}

	// page meta
	raw.Set(models.FieldMetaDescription, attrOf(`meta[name="description"]`, "content")(doc))
	raw.Set(models.FieldMetaKeywords, attrOf(`meta[name="keywords"]`, "content")(doc))
	if canonical := attrOf(`link[rel="canonical"]`, "href")(doc); canonical != "" {
		raw.Set(models.FieldCanonicalURL, e.resolve(pageURL, canonical))
	}
	raw.Set("breadcrumbs", textsOf(doc, `.breadcrumbs li`)...)

	return raw, nil
}

func (e *Extractor) pageURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return e.base
	}
	return u
}

// resolve makes href absolute against ref and drops the fragment. It
// returns "" for hrefs that do not point at a document.
func (e *Extractor) resolve(ref *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := ref.ResolveReference(u)
	abs.Fragment = ""
	return abs.String()
}

// strategy looks up one candidate value in the document.
type strategy func(doc *goquery.Document) string

func firstOf(doc *goquery.Document, strategies ...strategy) string {
	for _, s := range strategies {
		if v := strings.TrimSpace(s(doc)); v != "" {
			return v
		}
	}
	return ""
}

func textOf(selector string) strategy {
	return func(doc *goquery.Document) string {
		var out string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			out = collapse(s.Text())
			return out == ""
		})
		return out
	}
}

func attrOf(selector, attr string) strategy {
	return func(doc *goquery.Document) string {
		var out string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			out = strings.TrimSpace(s.AttrOr(attr, ""))
			return out == ""
		})
		return out
	}
}

func textsOf(doc *goquery.Document, selector string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := collapse(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (e *Extractor) coordinates(doc *goquery.Document, pageURL *url.URL) []string {
	var out []string
	seen := make(map[string]bool)
	doc.Find(`.coordinates a, .coordinating-products a.product-item-link`).Each(func(_ int, s *goquery.Selection) {
		link := e.resolve(pageURL, s.AttrOr("href", ""))
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		out = append(out, link)
	})
	return out
}
