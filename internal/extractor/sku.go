package extractor

import (
	"net/url"
	"path"
	"strings"

	"github.com/SYNC-360/kravet-scraper/internal/models"
)

// skuSources lists SKU candidates from most to least trusted: explicit
// structured identifiers come before free text, and the URL comes last.
var skuSources = []string{
	models.FieldSKUItemprop,
	models.FieldSKUElement,
	models.FieldSKUStructured,
	models.FieldRetailerItemID,
	models.FieldSKUFromURL,
}

// ResolveSKU strips a leading label such as "SKU:" or "Item #" from each
// candidate and picks the first one of at least models.MinSKULength
// characters.
func (e *Extractor) ResolveSKU(raw models.RawFieldMap) string {
	for _, field := range skuSources {
		candidate := e.skuLabel.ReplaceAllString(strings.TrimSpace(raw.First(field)), "")
		candidate = strings.TrimSpace(candidate)
		if len(candidate) < models.MinSKULength {
			continue
		}
		return candidate
	}
	return ""
}

// skuFromURL takes the last path segment of a detail URL when it looks like
// an item code.
func (e *Extractor) skuFromURL(u *url.URL) string {
	segment := path.Base(strings.TrimSuffix(u.Path, "/"))
	if segment == "." || segment == "/" {
		return ""
	}
	segment = strings.TrimSuffix(strings.TrimSuffix(segment, ".html"), ".htm")
	if !e.skuFromPath.MatchString(segment) {
		return ""
	}
	return segment
}
