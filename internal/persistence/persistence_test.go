package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SYNC-360/kravet-scraper/internal/events"
	"github.com/SYNC-360/kravet-scraper/internal/metrics"
	"github.com/SYNC-360/kravet-scraper/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func sampleRecord() *models.ProductRecord {
	return &models.ProductRecord{
		SKU:          "35518.16.0",
		URL:          "https://www.kravet.com/35518-16-0.html",
		BrandKey:     "kravet",
		Brand:        "Kravet",
		Name:         "Bellamy Linen",
		Collection:   "Candice Olson",
		Colorway:     "Ivory",
		TradePrice:   floatPtr(42.5),
		RetailPrice:  floatPtr(85),
		PriceUnit:    "yard",
		PriceText:    "Trade: $42.50 per yard | Retail: $85.00",
		PrimaryImage: "https://cdn.kravet.com/a.jpg",
		ImageURL:     "https://cdn.kravet.com/a.jpg",
		Images:       []string{"https://cdn.kravet.com/a.jpg", "https://cdn.kravet.com/b.jpg"},
		Specifications: map[string]string{
			"Content": "100% Linen",
			"Width":   "54 in",
		},
		TechDetails:    map[string]string{"Content": "100% Linen", "Width": "54 in"},
		Certifications: []string{},
		Coordinates:    []string{},
		Availability:   models.Availability{Status: models.StatusInStock},
	}
}

func TestBuildItem(t *testing.T) {
	item, err := BuildItem(sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, "35518.16.0", item.VendorItemID)
	assert.Equal(t, "https://www.kravet.com/35518-16-0.html", item.ItemURL)
	require.NotNil(t, item.PriceValue)
	assert.Equal(t, 42.5, *item.PriceValue)
	assert.False(t, item.Discontinued)
	assert.JSONEq(t, `{"status":"in_stock","quantity":null,"leadTime":null}`, string(item.Availability))

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(item.Data, &data))
	assert.Equal(t, "Kravet", data["brand"])
	assert.Equal(t, "Bellamy Linen", data["name"])

	pricing := data["pricing"].(map[string]interface{})
	assert.Equal(t, 42.5, pricing["trade_price"])
	assert.Equal(t, 85.0, pricing["retail_price"])
	assert.Equal(t, "yard", pricing["unit"])

	mediaDoc := data["media"].(map[string]interface{})
	assert.Equal(t, "https://cdn.kravet.com/a.jpg", mediaDoc["primary_image_url"])
	assert.Len(t, mediaDoc["images"], 2)

	specs := data["specifications"].(map[string]interface{})
	assert.Equal(t, "100% Linen", specs["Content"])
	assert.Contains(t, data, "tech_details")
}

func TestBuildItem_Variants(t *testing.T) {
	t.Run("retail price used when no trade price", func(t *testing.T) {
		record := sampleRecord()
		record.TradePrice = nil

		item, err := BuildItem(record)
		require.NoError(t, err)
		require.NotNil(t, item.PriceValue)
		assert.Equal(t, 85.0, *item.PriceValue)
	})

	t.Run("discontinued column follows availability", func(t *testing.T) {
		record := sampleRecord()
		record.Availability.Status = models.StatusDiscontinued

		item, err := BuildItem(record)
		require.NoError(t, err)
		assert.True(t, item.Discontinued)
	})

	t.Run("record without sku", func(t *testing.T) {
		_, err := BuildItem(&models.ProductRecord{URL: "https://www.kravet.com/x.html"})
		assert.Error(t, err)
	})
}

func TestRESTSink_Upsert(t *testing.T) {
	ctx := context.Background()
	endpoint := "https://store.example.test/rest/v1/item_latest?on_conflict=vendor_item_id"

	newSink := func(t *testing.T, transport http.RoundTripper) *RESTSink {
		t.Helper()
		sink, err := NewRESTSink(RESTConfig{
			BaseURL: "https://store.example.test/",
			Key:     "service-key",
			Table:   "item_latest",
			Client:  &http.Client{Transport: transport},
		})
		require.NoError(t, err)
		return sink
	}

	t.Run("posts merge-on-conflict upsert", func(t *testing.T) {
		transport := httpmock.NewMockTransport()

		var body map[string]interface{}
		var headers http.Header
		transport.RegisterResponder("POST", endpoint, func(req *http.Request) (*http.Response, error) {
			headers = req.Header.Clone()
			raw, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(raw, &body))
			return httpmock.NewStringResponse(http.StatusCreated, ""), nil
		})

		sink := newSink(t, transport)
		assert.Equal(t, endpoint, sink.Endpoint())

		err := sink.Upsert(ctx, events.NewItemScraped(sampleRecord()))
		require.NoError(t, err)

		assert.Equal(t, 1, transport.GetTotalCallCount())
		assert.Equal(t, "service-key", headers.Get("apikey"))
		assert.Equal(t, "Bearer service-key", headers.Get("Authorization"))
		assert.Equal(t, "application/json", headers.Get("Content-Type"))
		assert.Contains(t, headers.Get("Prefer"), "resolution=merge-duplicates")

		assert.Equal(t, "35518.16.0", body["vendor_item_id"])
		assert.Equal(t, "https://www.kravet.com/35518-16-0.html", body["item_url"])
		assert.Equal(t, 42.5, body["price_value"])
		assert.Equal(t, false, body["discontinued"])
		assert.Equal(t, "in_stock", body["availability"].(map[string]interface{})["status"])
		assert.Equal(t, "Bellamy Linen", body["data"].(map[string]interface{})["name"])
		assert.Equal(t, "Kravet", body["data"].(map[string]interface{})["brand"])

		keys := make([]string, 0, len(body))
		for k := range body {
			keys = append(keys, k)
		}
		assert.ElementsMatch(t, []string{
			"vendor_item_id", "item_url", "price_value", "price_text",
			"availability", "discontinued", "data",
		}, keys)
	})

	t.Run("store rejection is returned", func(t *testing.T) {
		transport := httpmock.NewMockTransport()
		transport.RegisterResponder("POST", endpoint,
			httpmock.NewStringResponder(http.StatusUnauthorized, `{"message":"Invalid API key"}`))

		err := newSink(t, transport).Upsert(ctx, events.NewItemScraped(sampleRecord()))

		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, http.StatusUnauthorized, storeErr.Status)
		assert.Contains(t, storeErr.Body, "Invalid API key")
	})

	t.Run("transport failure is returned", func(t *testing.T) {
		transport := httpmock.NewMockTransport()
		transport.RegisterResponder("POST", endpoint, httpmock.NewErrorResponder(errors.New("no route to host")))

		err := newSink(t, transport).Upsert(ctx, events.NewItemScraped(sampleRecord()))
		assert.Error(t, err)
	})
}

func TestNewRESTSink_Validation(t *testing.T) {
	_, err := NewRESTSink(RESTConfig{BaseURL: "not a url", Table: "item_latest"})
	assert.Error(t, err)

	_, err = NewRESTSink(RESTConfig{BaseURL: "https://store.example.test"})
	assert.Error(t, err)
}

func TestWriter_Persist(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("disabled without sink", func(t *testing.T) {
		w, err := NewWriter(nil, 16, nil, logger)
		require.NoError(t, err)

		assert.False(t, w.Enabled())
		outcome := w.Persist(ctx, events.NewItemScraped(sampleRecord()))
		assert.Equal(t, OutcomeDisabled, outcome)
		assert.False(t, outcome.Saved())
	})

	t.Run("identical upsert is answered from cache", func(t *testing.T) {
		sink := NewMemorySink()
		m := metrics.New()
		w, err := NewWriter(sink, 16, m, logger)
		require.NoError(t, err)

		first := w.Persist(ctx, events.NewItemScraped(sampleRecord()))
		second := w.Persist(ctx, events.NewItemScraped(sampleRecord()))

		assert.Equal(t, OutcomeSaved, first)
		assert.Equal(t, OutcomeUnchanged, second)
		assert.True(t, second.Saved())
		assert.Equal(t, 1, sink.Upserts())
		assert.Equal(t, 1, sink.Len())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistOutcomesTotal.WithLabelValues("unchanged")))
	})

	t.Run("changed record reaches the sink again", func(t *testing.T) {
		sink := NewMemorySink()
		w, err := NewWriter(sink, 16, nil, logger)
		require.NoError(t, err)

		require.Equal(t, OutcomeSaved, w.Persist(ctx, events.NewItemScraped(sampleRecord())))

		changed := sampleRecord()
		changed.TradePrice = floatPtr(39)
		assert.Equal(t, OutcomeSaved, w.Persist(ctx, events.NewItemScraped(changed)))

		assert.Equal(t, 2, sink.Upserts())
		assert.Equal(t, 1, sink.Len())
		stored, ok := sink.Get("35518.16.0")
		require.True(t, ok)
		assert.Equal(t, 39.0, *stored.PriceValue)
	})

	t.Run("sink failure is an outcome, not an error", func(t *testing.T) {
		sink := NewMemorySink()
		sink.Fail = func(sku string) error { return errors.New("store unavailable") }
		w, err := NewWriter(sink, 16, nil, logger)
		require.NoError(t, err)

		outcome := w.Persist(ctx, events.NewItemScraped(sampleRecord()))
		assert.Equal(t, OutcomeFailed, outcome)
		assert.False(t, outcome.Saved())

		// a failed write is not cached
		sink.Fail = nil
		assert.Equal(t, OutcomeSaved, w.Persist(ctx, events.NewItemScraped(sampleRecord())))
	})

	t.Run("record without sku fails", func(t *testing.T) {
		w, err := NewWriter(NewMemorySink(), 16, nil, logger)
		require.NoError(t, err)

		outcome := w.Persist(ctx, events.NewItemScraped(&models.ProductRecord{}))
		assert.Equal(t, OutcomeFailed, outcome)
	})
}
