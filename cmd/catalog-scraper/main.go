package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SYNC-360/kravet-scraper/internal/api"
	"github.com/SYNC-360/kravet-scraper/internal/brand"
	"github.com/SYNC-360/kravet-scraper/internal/browser"
	"github.com/SYNC-360/kravet-scraper/internal/config"
	"github.com/SYNC-360/kravet-scraper/internal/crawler"
	"github.com/SYNC-360/kravet-scraper/internal/database"
	"github.com/SYNC-360/kravet-scraper/internal/events"
	"github.com/SYNC-360/kravet-scraper/internal/logging"
	"github.com/SYNC-360/kravet-scraper/internal/metrics"
	"github.com/SYNC-360/kravet-scraper/internal/persistence"
	"github.com/SYNC-360/kravet-scraper/internal/ratelimit"
	"github.com/SYNC-360/kravet-scraper/internal/session"
	"github.com/SYNC-360/kravet-scraper/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	logger := logging.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("crawl failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown: stop dispatching, let in-flight pages finish
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down crawl...")
		cancel()
	}()

	targets, err := brand.Resolve(cfg.Crawl.Brands)
	if err != nil {
		return err
	}

	m := metrics.New()

	// Browser setup
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	opts.NavigationRetries = cfg.Browser.NavigationRetries
	if cfg.Browser.UserAgent != "" {
		opts.UserAgent = cfg.Browser.UserAgent
	}

	b, err := browser.New(opts, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer b.Close()

	sessions := session.NewManager(brand.DefaultSite(), b, session.Options{
		UserAgent: opts.UserAgent,
		Timeout:   opts.Timeout,
		Settle:    cfg.Crawl.LoginSettleDelay,
	}, logger)

	// Redis client for the event stream
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}

	// Persistence
	sink, db, err := openSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	writer, err := persistence.NewWriter(sink, cfg.Storage.CacheSize, m, logger)
	if err != nil {
		return err
	}

	// Outbox relay, only with the Postgres sink
	var relay *database.Relay
	relayDone := make(chan struct{})
	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	if db != nil && redisClient != nil {
		relay = database.NewRelay(db, redisClient, logger, database.RelayConfig{
			PollInterval: 2 * time.Second,
			BatchSize:    100,
		})
		go func() {
			defer close(relayDone)
			if err := relay.Start(relayCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("relay stopped with error", "error", err)
			}
		}()
	} else {
		close(relayDone)
	}

	// Local result stream, plus direct stream publishing without an outbox
	dataset, err := storage.NewDataset(cfg.Crawl.DatasetPath)
	if err != nil {
		return err
	}
	defer dataset.Close()

	emitters := events.Fanout{dataset}
	if redisClient != nil && db == nil {
		emitters = append(emitters, events.NewStreamPublisher(redisClient, logger, events.PublisherConfig{
			Stream: cfg.Redis.Stream,
			MaxLen: 100000,
		}))
	}

	c, err := crawler.New(crawler.Config{
		BaseOrigin: brand.BaseOrigin,
		Brands:     targets,
		Credentials: session.Credentials{
			Identity: cfg.Credentials.Identity,
			Secret:   cfg.Credentials.Secret,
		},
		MaxProductsPerBrand: cfg.Crawl.MaxProductsPerBrand,
		MaxConcurrency:      cfg.Crawl.MaxConcurrency,
		RequireAuth:         cfg.Crawl.RequireAuth,
		ListingWaitTimeout:  cfg.Crawl.ListingWaitTimeout,
		ProductSettleDelay:  cfg.Crawl.ProductSettleDelay,
	}, crawler.Deps{
		Loader:    b,
		Session:   sessions,
		Persister: writer,
		Emitter:   emitters,
		Pacer:     ratelimit.NewAdaptiveRateLimiter(cfg.Crawl.RateLimitMin, cfg.Crawl.RateLimitMax),
		Metrics:   m,
	}, logger)
	if err != nil {
		return err
	}

	// Status server
	if cfg.Server.StatusAddr != "" {
		var outbox api.OutboxStatus
		if relay != nil {
			outbox = relay
		}
		server := api.NewServer(cfg.Server.StatusAddr,
			api.NewRouter(api.NewHandlers(c, outbox, logger), m.Registry))

		go func() {
			logger.Info("status server starting", "addr", cfg.Server.StatusAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("status server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown failed", "error", err)
			}
		}()
	}

	logger.Info("starting crawl",
		"brands", cfg.Crawl.Brands,
		"persistence", writer.Enabled(),
		"dataset", dataset.Path())

	stats, crawlErr := c.Run(ctx)

	// Flush whatever the outbox still holds
	stopRelay()
	<-relayDone
	if relay != nil {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		if err := relay.Drain(drainCtx); err != nil {
			logger.Error("failed to drain outbox", "error", err)
		}
		drainCancel()
	}

	if err := crawler.Summary(os.Stdout, stats); err != nil {
		logger.Error("failed to write summary", "error", err)
	}

	if crawlErr != nil && !errors.Is(crawlErr, context.Canceled) {
		return crawlErr
	}
	return nil
}

// openSink builds the persistence backend selected by STORAGE_URL. It
// returns a nil sink when persistence is skipped, and the database handle
// when the Postgres sink is used.
func openSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (persistence.Sink, *database.DB, error) {
	if cfg.Storage.SkipPersistence {
		logger.Warn("persistence disabled, records go to the local dataset only")
		return nil, nil, nil
	}

	switch cfg.StorageKind() {
	case config.StorageREST:
		sink, err := persistence.NewRESTSink(persistence.RESTConfig{
			BaseURL: cfg.Storage.URL,
			Key:     cfg.Storage.Key,
			Table:   cfg.Storage.Table,
			Timeout: 30 * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		return sink, nil, nil

	case config.StoragePostgres:
		db, err := database.New(ctx, database.Config{
			URL:      cfg.Storage.URL,
			MaxConns: int32(cfg.Crawl.MaxConcurrency + 2),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx, cfg.Storage.Table); err != nil {
			db.Close()
			return nil, nil, err
		}
		sink, err := persistence.NewPostgresSink(db, cfg.Storage.Table, cfg.Redis.Stream)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return sink, db, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage url: %s", cfg.Storage.URL)
	}
}
