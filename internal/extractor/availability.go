package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/SYNC-360/kravet-scraper/internal/models"
)

var (
	discontinuedKeywords = []string{"discontinued", "no longer available"}
	backorderKeywords    = []string{"backorder", "back order", "back-order", "special order", "pre-order", "preorder", "pre order"}
	outOfStockKeywords   = []string{"out of stock", "out-of-stock", "unavailable", "not available", "sold out"}
	inStockKeywords      = []string{"in stock", "in-stock", "available"}

	quantityPattern = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(?:yards?|yds?|rolls?|units?|pieces?|panels?)\b`)
	leadTimePattern = regexp.MustCompile(`(?i)(?:lead\s*time|ships?\s+in|available\s+in|allow)\s*:?\s*(\d+\s*(?:-|to)\s*\d+\s*(?:business\s+)?(?:days?|weeks?)|\d+\s*(?:business\s+)?(?:days?|weeks?))`)
)

// ParseAvailability derives a status from free text. Checks run in the order
// discontinued, backorder, in stock; anything else is out of stock. Explicit
// out-of-stock phrases are tested before "available" so that "unavailable"
// does not read as in stock.
func ParseAvailability(text string) models.Availability {
	lower := strings.ToLower(collapse(text))
	a := models.Availability{Status: models.StatusOutOfStock}

	switch {
	case lower == "":
	case matchesAny(lower, discontinuedKeywords):
		a.Status = models.StatusDiscontinued
	case matchesAny(lower, backorderKeywords):
		a.Status = models.StatusBackorder
	case matchesAny(lower, outOfStockKeywords):
	case matchesAny(lower, inStockKeywords):
		a.Status = models.StatusInStock
	}

	if m := quantityPattern.FindStringSubmatch(text); m != nil {
		if q, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			a.Quantity = &q
		}
	}
	if m := leadTimePattern.FindStringSubmatch(text); m != nil {
		lead := collapse(m[1])
		a.LeadTime = &lead
	}

	return a
}
