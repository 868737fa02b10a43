package extractor

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// specBlocks are merged in order. A label repeated in a later block
// overwrites the earlier value.
var specBlocks = []func(doc *goquery.Document, put func(label, value string)){
	tableSpecs,
	definitionListSpecs,
	listItemSpecs,
}

func (e *Extractor) collectSpecs(doc *goquery.Document) map[string]string {
	specs := make(map[string]string)
	put := func(label, value string) {
		label = strings.TrimSpace(strings.TrimSuffix(collapse(label), ":"))
		value = collapse(value)
		if label == "" || value == "" {
			return
		}
		specs[label] = value
	}
	for _, block := range specBlocks {
		block(doc, put)
	}
	return specs
}

func tableSpecs(doc *goquery.Document, put func(label, value string)) {
	doc.Find(`.product-attributes tr, .additional-attributes tr, .specs-table tr`).Each(func(_ int, row *goquery.Selection) {
		label := row.Find("th").First().Text()
		if strings.TrimSpace(label) == "" {
			label = row.Find("td").First().Text()
		}
		put(label, row.Find("td").Last().Text())
	})
}

func definitionListSpecs(doc *goquery.Document, put func(label, value string)) {
	doc.Find(`.product-specs dl, .specifications dl`).Each(func(_ int, dl *goquery.Selection) {
		dl.Find("dt").Each(func(_ int, dt *goquery.Selection) {
			put(dt.Text(), dt.NextFiltered("dd").Text())
		})
	})
}

func listItemSpecs(doc *goquery.Document, put func(label, value string)) {
	doc.Find(`.product-specs li, .specifications li, .product-details li`).Each(func(_ int, li *goquery.Selection) {
		label, value, ok := strings.Cut(li.Text(), ":")
		if !ok {
			return
		}
		put(label, value)
	})
}

// SpecGroups are keyword classifications of the specification map. A label
// may land in more than one group.
type SpecGroups struct {
	TechDetails     map[string]string
	PerformanceData map[string]string
	Flammability    map[string]string
	Certifications  []string
}

var (
	techKeywords = []string{
		"content", "composition", "fiber", "fibre", "width", "repeat", "weight",
		"finish", "construction", "backing", "origin", "match", "railroad", "type",
	}
	performanceKeywords = []string{
		"abrasion", "double rub", "wyzenbeek", "martindale", "pilling",
		"lightfast", "colorfast", "crocking", "seam slippage", "cleaning", "durability",
	}
	flammabilityKeywords = []string{
		"flammab", "fire", "nfpa", "cal 117", "cal tb", "tb117", "ufac", "bs 5852", "imo", "astm e84",
	}
	certificationKeywords = []string{
		"certif", "greenguard", "oeko", "approved", "compliance",
	}
)

// GroupSpecifications classifies labels by case-insensitive substring match.
// Certifications collect "label: value" entries.
func GroupSpecifications(specs map[string]string) SpecGroups {
	groups := SpecGroups{
		TechDetails:     make(map[string]string),
		PerformanceData: make(map[string]string),
		Flammability:    make(map[string]string),
	}
	for label, value := range specs {
		lower := strings.ToLower(label)
		if matchesAny(lower, techKeywords) {
			groups.TechDetails[label] = value
		}
		if matchesAny(lower, performanceKeywords) {
			groups.PerformanceData[label] = value
		}
		if matchesAny(lower, flammabilityKeywords) {
			groups.Flammability[label] = value
		}
		if matchesAny(lower, certificationKeywords) {
			groups.Certifications = append(groups.Certifications, label+": "+value)
		}
	}
	sort.Strings(groups.Certifications)
	return groups
}

func matchesAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
