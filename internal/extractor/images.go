package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// imageGroups are scanned in order; duplicates across groups are dropped.
var imageGroups = []string{
	`.product-image img, .gallery-placeholder img, img[itemprop="image"]`,
	`.fotorama__img, .fotorama__stage img`,
	`.gallery img, .product-gallery img, .more-views img`,
}

var primaryImageSelectors = []string{
	`img.product-image-photo`,
	`.gallery-placeholder__image`,
	`.product-image-main img`,
}

// imageAttributes in preference order: full resolution, zoom, large, lazy
// source, rendered source.
var imageAttributes = []string{
	"data-full", "data-full-image",
	"data-zoom-image", "data-zoom",
	"data-large", "data-large-image",
	"data-src", "data-lazy",
	"src",
}

var placeholderMarkers = []string{
	"placeholder", "loading", "spinner", "blank.", "spacer.", "data:image",
}

// IsPlaceholderImage reports URLs of stand-in, loading or empty images.
func IsPlaceholderImage(u string) bool {
	lower := strings.ToLower(u)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// OrderImages drops duplicates and placeholders from images and puts primary
// first. primary is added when it is missing from images.
func OrderImages(primary string, images []string) []string {
	out := make([]string, 0, len(images)+1)
	seen := make(map[string]bool, len(images)+1)
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] || IsPlaceholderImage(u) {
			return
		}
		seen[u] = true
		out = append(out, u)
	}

	add(primary)
	for _, u := range images {
		add(u)
	}
	return out
}

func (e *Extractor) imageSource(pageURL *url.URL, s *goquery.Selection) string {
	for _, attr := range imageAttributes {
		v := strings.TrimSpace(s.AttrOr(attr, ""))
		if v == "" {
			continue
		}
		abs := e.resolve(pageURL, v)
		if abs == "" || IsPlaceholderImage(abs) {
			continue
		}
		return abs
	}
	// meta[itemprop=image] and link[itemprop=image] carry the URL elsewhere
	for _, attr := range []string{"content", "href"} {
		if v := s.AttrOr(attr, ""); v != "" {
			if abs := e.resolve(pageURL, v); abs != "" && !IsPlaceholderImage(abs) {
				return abs
			}
		}
	}
	return ""
}

func (e *Extractor) collectImages(doc *goquery.Document, pageURL *url.URL) []string {
	var images []string
	for _, group := range imageGroups {
		doc.Find(group).Each(func(_ int, s *goquery.Selection) {
			if src := e.imageSource(pageURL, s); src != "" {
				images = append(images, src)
			}
		})
	}
	return images
}

func (e *Extractor) primaryImage(doc *goquery.Document, pageURL *url.URL) string {
	for _, selector := range primaryImageSelectors {
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = e.imageSource(pageURL, s)
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	if og := attrOf(`meta[property="og:image"]`, "content")(doc); og != "" {
		return e.firstUsableImage(pageURL, []string{og})
	}
	return ""
}

func (e *Extractor) firstUsableImage(pageURL *url.URL, candidates []string) string {
	for _, c := range candidates {
		if abs := e.resolve(pageURL, c); abs != "" && !IsPlaceholderImage(abs) {
			return abs
		}
	}
	return ""
}
