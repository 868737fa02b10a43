package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/SYNC-360/kravet-scraper/internal/database"
	"github.com/SYNC-360/kravet-scraper/internal/models"
)

type document struct {
	Brand       string `json:"brand"`
	BrandKey    string `json:"brand_key"`
	Name        string `json:"name"`
	Collection  string `json:"collection"`
	Pattern     string `json:"pattern"`
	Colorway    string `json:"colorway"`
	Description string `json:"description"`

	Pricing pricing `json:"pricing"`
	Media   media   `json:"media"`

	Specifications  map[string]string `json:"specifications"`
	TechDetails     map[string]string `json:"tech_details"`
	PerformanceData map[string]string `json:"performance_data"`
	Flammability    map[string]string `json:"flammability"`
	Certifications  []string          `json:"certifications"`
	Coordinates     []string          `json:"coordinates"`

	Availability   models.Availability `json:"availability"`
	Meta           meta                `json:"meta"`
	StructuredData json.RawMessage     `json:"structured_data,omitempty"`
	Extras         map[string][]string `json:"extras,omitempty"`
}

type pricing struct {
	TradePrice  *float64 `json:"trade_price"`
	RetailPrice *float64 `json:"retail_price"`
	Unit        string   `json:"unit"`
	Text        string   `json:"text"`
}

type media struct {
	PrimaryImageURL string   `json:"primary_image_url,omitempty"`
	Images          []string `json:"images"`
}

type meta struct {
	Description  string `json:"description,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	CanonicalURL string `json:"canonical_url,omitempty"`
}

// BuildItem maps a record onto the store's row shape: identity, price and
// availability as columns, everything else nested under data.
func BuildItem(record *models.ProductRecord) (*database.Item, error) {
	if record == nil || record.SKU == "" {
		return nil, fmt.Errorf("record has no sku")
	}

	availability, err := json.Marshal(record.Availability)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal availability: %w", err)
	}

	images := record.Images
	if images == nil {
		images = []string{}
	}

	data, err := json.Marshal(document{
		Brand:       record.Brand,
		BrandKey:    record.BrandKey,
		Name:        record.Name,
		Collection:  record.Collection,
		Pattern:     record.Pattern,
		Colorway:    record.Colorway,
		Description: record.Description,
		Pricing: pricing{
			TradePrice:  record.TradePrice,
			RetailPrice: record.RetailPrice,
			Unit:        record.PriceUnit,
			Text:        record.PriceText,
		},
		Media: media{
			PrimaryImageURL: record.ImageURL,
			Images:          images,
		},
		Specifications:  record.Specifications,
		TechDetails:     record.TechDetails,
		PerformanceData: record.PerformanceData,
		Flammability:    record.Flammability,
		Certifications:  record.Certifications,
		Coordinates:     record.Coordinates,
		Availability:    record.Availability,
		Meta: meta{
			Description:  record.MetaDescription,
			Keywords:     record.MetaKeywords,
			CanonicalURL: record.CanonicalURL,
		},
		StructuredData: record.StructuredData,
		Extras:         record.Extras,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	return &database.Item{
		VendorItemID: record.SKU,
		ItemURL:      record.URL,
		Brand:        record.Brand,
		PriceValue:   record.DisplayPrice(),
		PriceText:    record.PriceText,
		Availability: availability,
		Discontinued: record.IsDiscontinued(),
		Data:         data,
	}, nil
}
