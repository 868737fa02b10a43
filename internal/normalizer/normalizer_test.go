package normalizer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SYNC-360/kravet-scraper/internal/models"
)

func sampleRaw() models.RawFieldMap {
	return models.RawFieldMap{
		models.FieldSKU:            {"34500.16.0"},
		models.FieldSKUFromURL:     {"34500-16"},
		"Title":                    {"Ravello Linen"},
		models.FieldBrand:          {"Kravet Couture"},
		models.FieldCollection:     {"Ravello"},
		models.FieldTradePrice:     {"42.50"},
		models.FieldRetailPrice:    {"1250"},
		models.FieldPriceUnit:      {"Yard"},
		models.FieldPriceText:      {"Trade: $42.50 per yard | Retail: $1,250"},
		models.FieldPrimaryImage:   {"https://cdn/p.jpg"},
		models.FieldImages:         {"https://cdn/a.jpg", "https://cdn/p.jpg", "https://cdn/a.jpg"},
		"spec:Colour":              {"Ivory"},
		"spec:Content":             {"100% Linen"},
		"spec:Flammability":        {"NFPA 260"},
		"spec:Certification":       {"Greenguard Gold"},
		models.FieldCertifications: {"Oeko-Tex"},
		models.FieldAvailability:   {"In stock: 45 yards"},
		models.FieldStructuredData: {"{ \"@type\": \"Product\" }"},
		"breadcrumbs":              {"Home", "Fabric"},
	}
}

func TestNormalize(t *testing.T) {
	record, err := Normalize(sampleRaw(), "kravet", "https://www.kravet.com/product/34500-16")
	require.NoError(t, err)

	assert.Equal(t, "34500.16.0", record.SKU)
	assert.Equal(t, "https://www.kravet.com/product/34500-16", record.URL)
	assert.Equal(t, "kravet", record.BrandKey)
	assert.Equal(t, "Kravet", record.Brand)
	assert.Equal(t, "Ravello Linen", record.Name)
	assert.Equal(t, "Ravello", record.Collection)
	assert.Equal(t, "Ivory", record.Colorway)
	assert.Empty(t, record.Pattern)

	require.NotNil(t, record.TradePrice)
	assert.Equal(t, 42.50, *record.TradePrice)
	require.NotNil(t, record.RetailPrice)
	assert.Equal(t, 1250.0, *record.RetailPrice)
	assert.Equal(t, "yard", record.PriceUnit)

	assert.Equal(t, []string{"https://cdn/p.jpg", "https://cdn/a.jpg"}, record.Images)
	assert.Equal(t, "https://cdn/p.jpg", record.PrimaryImage)
	assert.Equal(t, record.PrimaryImage, record.ImageURL)

	assert.Len(t, record.Specifications, 4)
	assert.Equal(t, map[string]string{"Content": "100% Linen"}, record.TechDetails)
	assert.Equal(t, map[string]string{"Flammability": "NFPA 260"}, record.Flammability)
	assert.Equal(t, []string{"Oeko-Tex", "Certification: Greenguard Gold"}, record.Certifications)
	assert.Equal(t, []string{}, record.Coordinates)

	assert.Equal(t, models.StatusInStock, record.Availability.Status)
	require.NotNil(t, record.Availability.Quantity)
	assert.Equal(t, 45.0, *record.Availability.Quantity)

	assert.JSONEq(t, `{"@type":"Product"}`, string(record.StructuredData))
	assert.Equal(t, map[string][]string{"breadcrumbs": {"Home", "Fabric"}}, record.Extras)
}

func TestNormalizeRejectsMissingSKU(t *testing.T) {
	raw := sampleRaw()
	delete(raw, models.FieldSKU)

	record, err := Normalize(raw, "kravet", "https://www.kravet.com/product/x")
	assert.Nil(t, record)

	var rejection *Rejection
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, "missing sku", rejection.Reason)
	assert.Equal(t, "https://www.kravet.com/product/x", rejection.URL)
}

func TestNormalizeRejectsShortSKU(t *testing.T) {
	raw := sampleRaw()
	raw[models.FieldSKU] = []string{"7"}

	_, err := Normalize(raw, "kravet", "u")

	var rejection *Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Contains(t, rejection.Reason, "shorter than 3")
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := sampleRaw()

	first, err := Normalize(raw, "leejofa", "https://www.kravet.com/product/34500-16")
	require.NoError(t, err)
	second, err := Normalize(raw, "leejofa", "https://www.kravet.com/product/34500-16")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, sampleRaw(), raw, "input must not be modified")
}

func TestBrandNameResolution(t *testing.T) {
	raw := sampleRaw()

	record, err := Normalize(raw, "coleson", "u")
	require.NoError(t, err)
	assert.Equal(t, "Cole & Son", record.Brand)

	record, err = Normalize(raw, "unlisted", "u")
	require.NoError(t, err)
	assert.Equal(t, "Kravet Couture", record.Brand)

	delete(raw, models.FieldBrand)
	record, err = Normalize(raw, "unlisted", "u")
	require.NoError(t, err)
	assert.Equal(t, "unlisted", record.Brand)
}

func TestNormalizeDefaults(t *testing.T) {
	record, err := Normalize(models.RawFieldMap{models.FieldSKU: {"ABC-123"}}, "kravet", "u")
	require.NoError(t, err)

	assert.Nil(t, record.TradePrice)
	assert.Nil(t, record.RetailPrice)
	assert.Equal(t, "yard", record.PriceUnit)
	assert.Empty(t, record.Images)
	assert.Empty(t, record.PrimaryImage)
	assert.Equal(t, models.StatusOutOfStock, record.Availability.Status)
	assert.Nil(t, record.StructuredData)
	assert.Nil(t, record.Extras)
}

func TestDiscontinuedFlagOverridesText(t *testing.T) {
	raw := models.RawFieldMap{
		models.FieldSKU:          {"ABC-123"},
		models.FieldAvailability: {"In stock"},
		models.FieldDiscontinued: {"true"},
	}

	record, err := Normalize(raw, "kravet", "u")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDiscontinued, record.Availability.Status)
	assert.True(t, record.IsDiscontinued())
}

func TestParseAmount(t *testing.T) {
	assert.Nil(t, parseAmount(""))
	assert.Nil(t, parseAmount("call"))
	assert.Nil(t, parseAmount("-3"))
	require.NotNil(t, parseAmount("$1,234.50"))
	assert.Equal(t, 1234.5, *parseAmount("$1,234.50"))
}
