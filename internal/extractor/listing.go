package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/SYNC-360/kravet-scraper/internal/models"
)

// ListingReadySelector matches product tiles once a listing has rendered.
const ListingReadySelector = `.product-item, .product-card, [data-product-id]`

var listingLinkSelectors = []string{
	`a.product-item-link`,
	`a.product-card-link`,
	`.product-item a[href*="/product/"]`,
	`.product-name a`,
}

var nextPageSelectors = []string{
	`a.next`,
	`a[rel="next"]`,
	`.pages-item-next a`,
	`link[rel="next"]`,
}

// Listing is what a catalog listing page yields.
type Listing struct {
	ProductURLs []string
	// NextHref is the raw next-page href, unresolved. Empty when absent.
	NextHref string
}

// ExtractListing collects detail-page links in page order, without
// duplicates, and the next-page href.
func (e *Extractor) ExtractListing(page *models.Page) (*Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	pageURL := e.pageURL(page.URL)
	listing := &Listing{}
	seen := make(map[string]bool)

	for _, selector := range listingLinkSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			link := e.resolve(pageURL, s.AttrOr("href", ""))
			if link == "" || seen[link] || !e.looksLikeDetailURL(link) {
				return
			}
			seen[link] = true
			listing.ProductURLs = append(listing.ProductURLs, link)
		})
	}

	for _, selector := range nextPageSelectors {
		href := strings.TrimSpace(doc.Find(selector).First().AttrOr("href", ""))
		if href != "" && href != "#" {
			listing.NextHref = href
			break
		}
	}

	return listing, nil
}

// looksLikeDetailURL accepts same-site links under /product/ or /fabric/,
// and .html item pages.
func (e *Extractor) looksLikeDetailURL(link string) bool {
	u, err := url.Parse(link)
	if err != nil || !strings.EqualFold(u.Host, e.base.Host) {
		return false
	}
	p := strings.ToLower(u.Path)
	return strings.Contains(p, "/product/") || strings.Contains(p, "/fabric/") || strings.HasSuffix(p, ".html")
}
