// Package frontier tracks crawl work: which URLs remain, which were ever
// seen, and how many products each brand has been granted.
package frontier

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/SYNC-360/kravet-scraper/internal/brand"
)

type Kind int

const (
	Listing Kind = iota
	Product
)

func (k Kind) String() string {
	switch k {
	case Listing:
		return "listing"
	case Product:
		return "product"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Entry is one unit of crawl work. Page is set for listings only.
type Entry struct {
	URL   string
	Kind  Kind
	Brand string
	Page  int
}

// Frontier is a FIFO of entries with crawl-lifetime URL dedup and per-brand
// product admission. It is not safe for concurrent use; the crawl
// coordinator is its only caller.
type Frontier struct {
	base        *url.URL
	maxPerBrand int

	queue    []*Entry
	seen     map[string]bool
	admitted map[string]int
}

func New(baseOrigin string, maxPerBrand int) (*Frontier, error) {
	base, err := url.Parse(baseOrigin)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base origin %q", baseOrigin)
	}
	if maxPerBrand < 1 {
		return nil, fmt.Errorf("max products per brand must be at least 1, got %d", maxPerBrand)
	}

	return &Frontier{
		base:        base,
		maxPerBrand: maxPerBrand,
		seen:        make(map[string]bool),
		admitted:    make(map[string]int),
	}, nil
}

// SeedListing enqueues page 1 of the target's listing. It returns nil if
// that URL was already seen.
func (f *Frontier) SeedListing(target brand.Target) *Entry {
	u := f.resolve(target.ListingURL)
	if u == "" || f.seen[u] {
		return nil
	}
	return f.push(&Entry{URL: u, Kind: Listing, Brand: target.Key, Page: 1})
}

// EnqueueProducts admits product URLs for a brand in the given order. URLs
// seen before, by any brand, are skipped. Admission stops once the brand has
// been granted maxPerBrand products. It returns the admitted entries.
func (f *Frontier) EnqueueProducts(urls []string, brandKey string) []*Entry {
	var added []*Entry
	for _, raw := range urls {
		if f.Remaining(brandKey) <= 0 {
			break
		}
		u := f.resolve(raw)
		if u == "" || f.seen[u] {
			continue
		}
		f.admitted[brandKey]++
		added = append(added, f.push(&Entry{URL: u, Kind: Product, Brand: brandKey}))
	}
	return added
}

// MaybeEnqueueNextListing continues a brand's pagination. It returns nil,
// ending that brand's pagination, when the brand is at its cap, when nextHref
// is absent or "#", or when the next URL was already seen.
func (f *Frontier) MaybeEnqueueNextListing(brandKey string, currentPage int, nextHref string) *Entry {
	if f.Remaining(brandKey) <= 0 {
		return nil
	}
	u := f.resolve(nextHref)
	if u == "" || f.seen[u] {
		return nil
	}
	return f.push(&Entry{URL: u, Kind: Listing, Brand: brandKey, Page: currentPage + 1})
}

// Next pops the oldest entry.
func (f *Frontier) Next() (*Entry, bool) {
	if len(f.queue) == 0 {
		return nil, false
	}
	e := f.queue[0]
	f.queue[0] = nil
	f.queue = f.queue[1:]
	return e, true
}

func (f *Frontier) Len() int {
	return len(f.queue)
}

func (f *Frontier) Admitted(brandKey string) int {
	return f.admitted[brandKey]
}

func (f *Frontier) Remaining(brandKey string) int {
	return f.maxPerBrand - f.admitted[brandKey]
}

func (f *Frontier) Seen(raw string) bool {
	u := f.resolve(raw)
	return u != "" && f.seen[u]
}

func (f *Frontier) push(e *Entry) *Entry {
	f.seen[e.URL] = true
	f.queue = append(f.queue, e)
	return e
}

// resolve makes href absolute against the base origin and drops any
// fragment. "#"-only and javascript: hrefs resolve to "".
func (f *Frontier) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := f.base.ResolveReference(u)
	abs.Fragment = ""
	return abs.String()
}
