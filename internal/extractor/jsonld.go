package extractor

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ldProduct is the subset of a schema.org Product node the extractor reads.
type ldProduct struct {
	raw json.RawMessage

	Type        json.RawMessage `json:"@type"`
	SKU         json.RawMessage `json:"sku"`
	ProductID   json.RawMessage `json:"productID"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Brand       json.RawMessage `json:"brand"`
	Image       json.RawMessage `json:"image"`
	Offers      json.RawMessage `json:"offers"`
}

// structuredProduct returns the first Product node found in the page's
// JSON-LD blocks, or nil.
func (e *Extractor) structuredProduct(doc *goquery.Document) *ldProduct {
	var found *ldProduct
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = findProduct(json.RawMessage(strings.TrimSpace(s.Text())))
		return found == nil
	})
	return found
}

func findProduct(data json.RawMessage) *ldProduct {
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '[':
		var nodes []json.RawMessage
		if err := json.Unmarshal(data, &nodes); err != nil {
			return nil
		}
		for _, n := range nodes {
			if p := findProduct(n); p != nil {
				return p
			}
		}
	case '{':
		var graph struct {
			Graph []json.RawMessage `json:"@graph"`
		}
		if err := json.Unmarshal(data, &graph); err == nil && len(graph.Graph) > 0 {
			for _, n := range graph.Graph {
				if p := findProduct(n); p != nil {
					return p
				}
			}
			return nil
		}
		var p ldProduct
		if err := json.Unmarshal(data, &p); err != nil {
			return nil
		}
		if !containsString(stringsOf(p.Type), "Product") {
			return nil
		}
		p.raw = data
		return &p
	}
	return nil
}

func (p *ldProduct) field(fn func(*ldProduct) string) strategy {
	return func(*goquery.Document) string {
		if p == nil {
			return ""
		}
		return fn(p)
	}
}

func (p *ldProduct) sku() string {
	if v := scalar(p.SKU); v != "" {
		return v
	}
	return scalar(p.ProductID)
}

func (p *ldProduct) brandName() string {
	if v := scalar(p.Brand); v != "" {
		return v
	}
	var named struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(p.Brand, &named); err == nil {
		return named.Name
	}
	return ""
}

func (p *ldProduct) images() []string {
	if out := stringsOf(p.Image); len(out) > 0 {
		return out
	}
	var out []string
	var objects []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(p.Image, &objects); err == nil {
		for _, o := range objects {
			out = append(out, o.URL)
		}
	}
	return out
}

type ldOffer struct {
	Price        json.RawMessage `json:"price"`
	Availability string          `json:"availability"`
}

func (p *ldProduct) offer() ldOffer {
	var o ldOffer
	if len(p.Offers) == 0 {
		return o
	}
	if p.Offers[0] == '[' {
		var list []ldOffer
		if err := json.Unmarshal(p.Offers, &list); err == nil && len(list) > 0 {
			return list[0]
		}
		return o
	}
	_ = json.Unmarshal(p.Offers, &o)
	return o
}

func (p *ldProduct) offerPrice() string {
	return scalar(p.offer().Price)
}

// availabilityText turns a schema.org availability URL such as
// "https://schema.org/BackOrder" into words ("back order").
func (p *ldProduct) availabilityText() string {
	v := p.offer().Availability
	if i := strings.LastIndex(v, "/"); i >= 0 {
		v = v[i+1:]
	}
	var b strings.Builder
	for i, r := range v {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// scalar reads a JSON string or number as text.
func scalar(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return n.String()
	}
	return ""
}

// stringsOf reads a JSON string or array of strings.
func stringsOf(data json.RawMessage) []string {
	if v := scalar(data); v != "" {
		return []string{v}
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return list
	}
	return nil
}

func containsString(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

