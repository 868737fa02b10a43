package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/SYNC-360/kravet-scraper/internal/database"
	"github.com/SYNC-360/kravet-scraper/internal/events"
	"github.com/SYNC-360/kravet-scraper/internal/metrics"
)

// Writer fronts a Sink with a cache of the last stored payload per SKU, so an
// identical re-upsert is answered without a remote call. Failures are turned
// into OutcomeFailed and never abort the caller.
type Writer struct {
	sink    Sink
	cache   *lru.Cache[string, uint64]
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewWriter returns a Writer for sink. A nil sink disables persistence and
// every call reports OutcomeDisabled.
func NewWriter(sink Sink, cacheSize int, m *metrics.Metrics, logger *slog.Logger) (*Writer, error) {
	if cacheSize < 1 {
		cacheSize = 1
	}
	cache, err := lru.New[string, uint64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create persistence cache: %w", err)
	}

	return &Writer{
		sink:    sink,
		cache:   cache,
		metrics: m,
		logger:  logger.With("component", "persistence"),
	}, nil
}

func (w *Writer) Enabled() bool {
	return w.sink != nil
}

func (w *Writer) Persist(ctx context.Context, env *events.Envelope) Outcome {
	outcome := w.persist(ctx, env)
	w.metrics.IncOutcome(string(outcome))
	return outcome
}

func (w *Writer) persist(ctx context.Context, env *events.Envelope) Outcome {
	if w.sink == nil {
		return OutcomeDisabled
	}

	item, err := BuildItem(env.Record)
	if err != nil {
		w.logger.Error("failed to build item", "error", err)
		return OutcomeFailed
	}

	sum := fingerprint(item)
	if prev, ok := w.cache.Get(item.VendorItemID); ok && prev == sum {
		w.logger.Debug("record unchanged", "sku", item.VendorItemID)
		return OutcomeUnchanged
	}

	if err := w.sink.Upsert(ctx, env); err != nil {
		w.logger.Error("failed to persist record",
			"sku", item.VendorItemID,
			"sink", w.sink.Name(),
			"error", err)
		return OutcomeFailed
	}

	w.cache.Add(item.VendorItemID, sum)
	return OutcomeSaved
}

// fingerprint hashes every stored column except the key.
func fingerprint(item *database.Item) uint64 {
	d := xxhash.New()
	parts := [][]byte{
		[]byte(item.ItemURL),
		[]byte(item.Brand),
		[]byte(priceKey(item.PriceValue)),
		[]byte(item.PriceText),
		item.Availability,
		[]byte(fmt.Sprint(item.Discontinued)),
		item.Data,
	}
	for _, part := range parts {
		_, _ = d.Write(part)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

func priceKey(p *float64) string {
	if p == nil {
		return "null"
	}
	return fmt.Sprintf("%.4f", *p)
}
