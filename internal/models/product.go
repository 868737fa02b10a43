package models

import (
	"encoding/json"
)

type AvailabilityStatus string

const (
	StatusInStock      AvailabilityStatus = "in_stock"
	StatusOutOfStock   AvailabilityStatus = "out_of_stock"
	StatusBackorder    AvailabilityStatus = "backorder"
	StatusDiscontinued AvailabilityStatus = "discontinued"
)

// DefaultPriceUnit is used when no "per <unit>" marker is present in the price text.
const DefaultPriceUnit = "yard"

// MinSKULength is the shortest identifier accepted as a vendor SKU.
const MinSKULength = 3

type Availability struct {
	Status   AvailabilityStatus `json:"status"`
	Quantity *float64           `json:"quantity"`
	LeadTime *string            `json:"leadTime"`
}

// ProductRecord is the canonical, persistable form of one catalog item.
// Records with the same SKU describe the same item and replace each other.
type ProductRecord struct {
	SKU         string `json:"sku"`
	URL         string `json:"url"`
	BrandKey    string `json:"brandKey"`
	Brand       string `json:"brand"`
	Name        string `json:"name"`
	Collection  string `json:"collection"`
	Pattern     string `json:"pattern"`
	Colorway    string `json:"colorway"`
	Description string `json:"description"`

	TradePrice  *float64 `json:"tradePrice"`
	RetailPrice *float64 `json:"retailPrice"`
	PriceUnit   string   `json:"priceUnit"`
	PriceText   string   `json:"priceText"`

	PrimaryImage string   `json:"primaryImage,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	Images       []string `json:"images"`

	Specifications  map[string]string `json:"specifications"`
	TechDetails     map[string]string `json:"techDetails"`
	PerformanceData map[string]string `json:"performanceData"`
	Flammability    map[string]string `json:"flammability"`
	Certifications  []string          `json:"certifications"`
	Coordinates     []string          `json:"coordinates"`

	Availability Availability `json:"availability"`

	MetaDescription string          `json:"metaDescription,omitempty"`
	MetaKeywords    string          `json:"metaKeywords,omitempty"`
	CanonicalURL    string          `json:"canonicalUrl,omitempty"`
	StructuredData  json.RawMessage `json:"structuredData,omitempty"`

	// Extras holds extracted fields that have no first-class slot.
	Extras map[string][]string `json:"extras,omitempty"`
}

func (p *ProductRecord) IsDiscontinued() bool {
	return p.Availability.Status == StatusDiscontinued
}

// DisplayPrice returns the trade price when known, otherwise the retail price.
func (p *ProductRecord) DisplayPrice() *float64 {
	if p.TradePrice != nil {
		return p.TradePrice
	}
	return p.RetailPrice
}
