// Package crawler drives a catalog crawl: it logs in, walks each brand's
// listing pages and turns every admitted product page into a persisted
// record.
//
// One coordinator goroutine owns the frontier and the crawl statistics.
// Page work runs on a bounded pool of workers that report back over a
// channel, so neither structure is ever shared between goroutines.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SYNC-360/kravet-scraper/internal/brand"
	"github.com/SYNC-360/kravet-scraper/internal/browser"
	"github.com/SYNC-360/kravet-scraper/internal/events"
	"github.com/SYNC-360/kravet-scraper/internal/extractor"
	"github.com/SYNC-360/kravet-scraper/internal/frontier"
	"github.com/SYNC-360/kravet-scraper/internal/metrics"
	"github.com/SYNC-360/kravet-scraper/internal/models"
	"github.com/SYNC-360/kravet-scraper/internal/normalizer"
	"github.com/SYNC-360/kravet-scraper/internal/persistence"
	"github.com/SYNC-360/kravet-scraper/internal/session"
)

// PageLoader renders one page. *browser.Browser implements it.
type PageLoader interface {
	Load(ctx context.Context, req browser.LoadRequest) (*models.Page, error)
}

// SessionEstablisher logs in before the crawl starts. *session.Manager
// implements it.
type SessionEstablisher interface {
	Establish(ctx context.Context, creds session.Credentials) (*session.Handle, error)
}

// Persister stores one record and reports how it went. *persistence.Writer
// implements it.
type Persister interface {
	Persist(ctx context.Context, env *events.Envelope) persistence.Outcome
}

// Pacer spaces navigations. *ratelimit.AdaptiveRateLimiter implements it.
type Pacer interface {
	Wait(ctx context.Context) error
	RecordSuccess()
	RecordError()
}

type Config struct {
	BaseOrigin          string
	Brands              []brand.Target
	Credentials         session.Credentials
	MaxProductsPerBrand int
	MaxConcurrency      int
	RequireAuth         bool
	ListingWaitTimeout  time.Duration
	ProductSettleDelay  time.Duration
}

// Deps are the crawler's collaborators. Emitter, Pacer and Metrics are
// optional.
type Deps struct {
	Loader    PageLoader
	Session   SessionEstablisher
	Persister Persister
	Emitter   events.Emitter
	Pacer     Pacer
	Metrics   *metrics.Metrics
}

type Crawler struct {
	cfg       Config
	loader    PageLoader
	session   SessionEstablisher
	persister Persister
	emitter   events.Emitter
	pacer     Pacer
	metrics   *metrics.Metrics
	extractor *extractor.Extractor
	logger    *slog.Logger

	snapshot atomic.Pointer[models.CrawlStats]
}

func New(cfg Config, deps Deps, logger *slog.Logger) (*Crawler, error) {
	if deps.Loader == nil || deps.Session == nil || deps.Persister == nil {
		return nil, fmt.Errorf("crawler requires a page loader, a session and a persister")
	}
	if len(cfg.Brands) == 0 {
		return nil, ErrNoBrands
	}
	if cfg.BaseOrigin == "" {
		cfg.BaseOrigin = brand.BaseOrigin
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.MaxProductsPerBrand < 1 {
		return nil, fmt.Errorf("max products per brand must be at least 1, got %d", cfg.MaxProductsPerBrand)
	}

	ext, err := extractor.New(cfg.BaseOrigin)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	c := &Crawler{
		cfg:       cfg,
		loader:    deps.Loader,
		session:   deps.Session,
		persister: deps.Persister,
		emitter:   deps.Emitter,
		pacer:     deps.Pacer,
		metrics:   deps.Metrics,
		extractor: ext,
		logger:    logger.With("component", "crawler"),
	}
	if c.emitter == nil {
		c.emitter = events.Fanout{}
	}
	if c.pacer == nil {
		c.pacer = noPacing{}
	}
	c.publish(models.NewCrawlStats(c.brandStats()))

	return c, nil
}

// Stats returns the latest statistics snapshot. It is safe to call while
// Run is in progress; the returned value must not be modified.
func (c *Crawler) Stats() *models.CrawlStats {
	return c.snapshot.Load()
}

// Run crawls every configured brand until the frontier is exhausted and
// returns the final statistics. Only a failed login, or an unauthenticated
// session when RequireAuth is set, stops it early. A cancelled ctx stops
// dispatching new pages; pages already in flight are waited for.
func (c *Crawler) Run(ctx context.Context) (*models.CrawlStats, error) {
	stats := models.NewCrawlStats(c.brandStats())
	c.publish(stats)

	// LOGIN
	handle, err := c.session.Establish(ctx, c.cfg.Credentials)
	if err != nil {
		return c.finish(stats), fmt.Errorf("failed to establish session: %w", err)
	}
	stats.SessionState = string(handle.State)
	c.publish(stats)

	if handle.State.Authenticated() {
		c.logger.Info("session established", "state", handle.State, "cookies", len(handle.Cookies))
	} else {
		c.logger.Warn("crawling without an authenticated session, trade pricing will be missing",
			"state", handle.State,
			"require_auth", c.cfg.RequireAuth)
		if c.cfg.RequireAuth {
			return c.finish(stats), ErrUnauthenticated
		}
	}

	f, err := frontier.New(c.cfg.BaseOrigin, c.cfg.MaxProductsPerBrand)
	if err != nil {
		return c.finish(stats), fmt.Errorf("failed to create frontier: %w", err)
	}
	for _, target := range c.cfg.Brands {
		if entry := f.SeedListing(target); entry != nil {
			c.logger.Debug("listing seeded", "brand", target.Key, "url", entry.URL)
		}
	}

	c.logger.Info("crawl started",
		"brands", len(c.cfg.Brands),
		"max_products_per_brand", c.cfg.MaxProductsPerBrand,
		"max_concurrency", c.cfg.MaxConcurrency)

	err = c.drain(ctx, f, stats)
	return c.finish(stats), err
}

// result is what a worker hands back to the coordinator.
type result struct {
	entry   *frontier.Entry
	listing *extractor.Listing
	record  *models.ProductRecord
	outcome persistence.Outcome
	err     error
}

// drain is the coordinator loop. It keeps up to MaxConcurrency entries in
// flight and applies results one at a time; the crawl ends when the queue is
// empty and no worker is busy. Cancelling ctx stops dispatch only: workers
// run on a detached context, so a page already in flight is still loaded,
// emitted and persisted.
func (c *Crawler) drain(ctx context.Context, f *frontier.Frontier, stats *models.CrawlStats) error {
	results := make(chan *result)
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(c.cfg.MaxConcurrency)

	inFlight := 0
	for {
		for inFlight < c.cfg.MaxConcurrency && ctx.Err() == nil {
			entry, ok := f.Next()
			if !ok {
				break
			}
			inFlight++
			g.Go(func() error {
				results <- c.process(gctx, entry)
				return nil
			})
		}
		c.metrics.SetPending(f.Len())

		if inFlight == 0 {
			break
		}

		res := <-results
		inFlight--
		c.apply(f, stats, res)
		c.publish(stats)
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		c.logger.Warn("crawl interrupted", "pending", f.Len())
		return err
	}
	return nil
}

// process runs on a worker. It never touches the frontier or the stats.
func (c *Crawler) process(ctx context.Context, entry *frontier.Entry) (res *result) {
	defer func() {
		if r := recover(); r != nil {
			res = &result{entry: entry, err: &PanicError{URL: entry.URL, Value: r, Stack: debug.Stack()}}
		}
	}()

	switch entry.Kind {
	case frontier.Listing:
		return c.visitListing(ctx, entry)
	default:
		return c.visitProduct(ctx, entry)
	}
}

// LISTING
func (c *Crawler) visitListing(ctx context.Context, entry *frontier.Entry) *result {
	page, err := c.load(ctx, entry, browser.LoadRequest{
		URL:          entry.URL,
		WaitSelector: extractor.ListingReadySelector,
		WaitTimeout:  c.cfg.ListingWaitTimeout,
	})
	if err != nil {
		return &result{entry: entry, err: err}
	}

	listing, err := c.extractor.ExtractListing(page)
	if err != nil {
		return &result{entry: entry, err: &NavigationError{URL: entry.URL, Kind: entry.Kind, Err: err}}
	}

	return &result{entry: entry, listing: listing}
}

// PRODUCT
func (c *Crawler) visitProduct(ctx context.Context, entry *frontier.Entry) *result {
	page, err := c.load(ctx, entry, browser.LoadRequest{
		URL:    entry.URL,
		Settle: c.cfg.ProductSettleDelay,
	})
	if err != nil {
		return &result{entry: entry, err: err}
	}

	raw, err := c.extractor.Extract(page)
	if err != nil {
		return &result{entry: entry, err: &NavigationError{URL: entry.URL, Kind: entry.Kind, Err: err}}
	}

	record, err := normalizer.Normalize(raw, entry.Brand, entry.URL)
	if err != nil {
		return &result{entry: entry, err: err}
	}

	env := events.NewItemScraped(record)
	if err := c.emitter.Emit(ctx, env); err != nil {
		c.logger.Warn("failed to emit record", "sku", record.SKU, "error", err)
	}

	return &result{
		entry:   entry,
		record:  record,
		outcome: c.persister.Persist(ctx, env),
	}
}

func (c *Crawler) load(ctx context.Context, entry *frontier.Entry, req browser.LoadRequest) (*models.Page, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, &NavigationError{URL: entry.URL, Kind: entry.Kind, Err: err}
	}

	start := time.Now()
	page, err := c.loader.Load(ctx, req)
	if err != nil {
		c.pacer.RecordError()
		return nil, &NavigationError{URL: entry.URL, Kind: entry.Kind, Err: err}
	}
	c.pacer.RecordSuccess()
	c.metrics.ObservePage(entry.Kind.String(), time.Since(start))

	return page, nil
}

// apply folds one worker result into the frontier and the stats. Only the
// coordinator calls it.
func (c *Crawler) apply(f *frontier.Frontier, stats *models.CrawlStats, res *result) {
	entry := res.entry
	bs := stats.Brand(entry.Brand)

	if res.err != nil {
		if errors.Is(res.err, context.Canceled) {
			c.logger.Debug("abandoned after cancellation", "url", entry.URL)
			return
		}
		kind := errorKind(res.err)
		c.recordError(stats, bs, kind)
		c.logger.Error("failed to process url",
			"url", entry.URL,
			"page_kind", entry.Kind.String(),
			"brand", entry.Brand,
			"error_kind", kind,
			"error", res.err)
		return
	}

	switch entry.Kind {
	case frontier.Listing:
		added := f.EnqueueProducts(res.listing.ProductURLs, entry.Brand)
		next := f.MaybeEnqueueNextListing(entry.Brand, entry.Page, res.listing.NextHref)
		c.logger.Info("listing processed",
			"brand", entry.Brand,
			"page", entry.Page,
			"found", len(res.listing.ProductURLs),
			"enqueued", len(added),
			"remaining", f.Remaining(entry.Brand),
			"next_page", next != nil)
		if next == nil {
			c.logger.Debug("pagination finished", "brand", entry.Brand, "page", entry.Page)
		}

	case frontier.Product:
		stats.Scraped++
		if bs != nil {
			bs.Scraped++
		}
		c.metrics.IncScraped(entry.Brand)

		switch {
		case res.outcome.Saved():
			stats.Saved++
			if bs != nil {
				bs.Saved++
			}
			c.metrics.IncSaved(entry.Brand)
		case res.outcome == persistence.OutcomeFailed:
			// by kind only; Errors counts pages that failed
			stats.ErrorsByKind[KindPersistence]++
			c.metrics.IncError(KindPersistence)
		}

		c.logger.Info("record processed",
			"sku", res.record.SKU,
			"brand", res.record.Brand,
			"name", res.record.Name,
			"price", res.record.PriceText,
			"availability", res.record.Availability.Status,
			"outcome", res.outcome)
	}
}

func (c *Crawler) recordError(stats *models.CrawlStats, bs *models.BrandStats, kind string) {
	stats.Errors++
	stats.ErrorsByKind[kind]++
	if bs != nil {
		bs.Errors++
	}
	c.metrics.IncError(kind)
}

func (c *Crawler) finish(stats *models.CrawlStats) *models.CrawlStats {
	stats.FinishedAt = time.Now()
	c.publish(stats)
	c.logger.Info("crawl finished",
		"scraped", stats.Scraped,
		"saved", stats.Saved,
		"errors", stats.Errors,
		"duration", stats.FinishedAt.Sub(stats.StartedAt).Round(time.Millisecond).String())
	return stats.Clone()
}

func (c *Crawler) publish(stats *models.CrawlStats) {
	c.snapshot.Store(stats.Clone())
}

func (c *Crawler) brandStats() []*models.BrandStats {
	out := make([]*models.BrandStats, len(c.cfg.Brands))
	for i, t := range c.cfg.Brands {
		out[i] = &models.BrandStats{Key: t.Key, Name: t.Name}
	}
	return out
}

type noPacing struct{}

func (noPacing) Wait(ctx context.Context) error { return ctx.Err() }
func (noPacing) RecordSuccess()                 {}
func (noPacing) RecordError()                   {}
