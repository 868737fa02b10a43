package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/SYNC-360/kravet-scraper/internal/models"
)

// PriceSplit is the outcome of classifying the price texts on one page.
// Amounts are decimal strings with thousands separators removed.
type PriceSplit struct {
	Trade  string
	Retail string
	Unit   string
	Text   string
}

const priceSelector = `.price, .product-price, [data-price-type]`

// priceTexts returns one text per innermost price element that carries an
// amount. A text with no trade or retail keyword takes the label of the
// closest wrapping price element, unless a priced element inside that
// wrapper is labelled on its own.
func (e *Extractor) priceTexts(doc *goquery.Document) []string {
	var texts []string
	seen := make(map[string]bool)
	doc.Find(priceSelector).Each(func(_ int, s *goquery.Selection) {
		if !e.priceNumber.MatchString(s.Text()) || e.pricedWithin(s).Length() > 0 {
			return
		}
		text := labelledText(s)
		if !e.hasPriceLabel(text) {
			s.ParentsFiltered(priceSelector).EachWithBreak(func(_ int, p *goquery.Selection) bool {
				label := e.wrapperLabel(p)
				if label != "" {
					text = collapse(label + ": " + text)
				}
				return label == ""
			})
		}
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		texts = append(texts, text)
	})
	return texts
}

// pricedWithin returns the price elements below s that carry an amount.
func (e *Extractor) pricedWithin(s *goquery.Selection) *goquery.Selection {
	return s.Find(priceSelector).FilterFunction(func(_ int, c *goquery.Selection) bool {
		return e.priceNumber.MatchString(c.Text())
	})
}

// wrapperLabel returns the label a wrapping price element gives its priced
// children: its data-price-label, or else a keyword in its own text.
func (e *Extractor) wrapperLabel(p *goquery.Selection) string {
	own := collapse(p.Text())
	childLabelled := false
	e.pricedWithin(p).Each(func(_ int, c *goquery.Selection) {
		if e.hasPriceLabel(labelledText(c)) {
			childLabelled = true
		}
		own = strings.Replace(own, collapse(c.Text()), "", 1)
	})
	if childLabelled {
		return ""
	}
	if label := p.AttrOr("data-price-label", ""); label != "" {
		return label
	}
	if m := e.tradeLabel.FindString(own); m != "" {
		return m
	}
	return e.retailLabel.FindString(own)
}

func (e *Extractor) hasPriceLabel(text string) bool {
	return e.tradeLabel.MatchString(text) || e.retailLabel.MatchString(text)
}

func labelledText(s *goquery.Selection) string {
	text := collapse(s.Text())
	if label := s.AttrOr("data-price-label", ""); label != "" {
		text = collapse(label + ": " + text)
	}
	return text
}

// SplitPrices classifies each price text as trade or retail by keyword.
// A text without a keyword only counts as trade when no labelled trade price
// exists, and only the first such text is used. The unit comes from a
// "per <unit>" marker anywhere in the texts.
func (e *Extractor) SplitPrices(texts []string) PriceSplit {
	var split PriceSplit
	var unlabelled string

	for _, text := range texts {
		m := e.priceNumber.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amount := strings.ReplaceAll(m[1], ",", "")

		switch {
		case e.tradeLabel.MatchString(text):
			if split.Trade == "" {
				split.Trade = amount
			}
		case e.retailLabel.MatchString(text):
			if split.Retail == "" {
				split.Retail = amount
			}
		default:
			if unlabelled == "" {
				unlabelled = amount
			}
		}
	}

	if split.Trade == "" {
		split.Trade = unlabelled
	}

	joined := strings.Join(texts, " | ")
	split.Text = joined
	split.Unit = models.DefaultPriceUnit
	if m := e.priceUnit.FindStringSubmatch(joined); m != nil {
		split.Unit = strings.ToLower(m[1])
	}

	return split
}
