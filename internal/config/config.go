package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/SYNC-360/kravet-scraper/internal/brand"
)

type Config struct {
	Credentials Credentials
	Crawl       CrawlConfig
	Browser     BrowserConfig
	Storage     StorageConfig
	Redis       RedisConfig
	Server      ServerConfig
	Logging     LoggingConfig
}

type Credentials struct {
	Identity string
	Secret   string
}

type CrawlConfig struct {
	Brands              []string
	MaxProductsPerBrand int
	MaxConcurrency      int
	RequireAuth         bool
	ListingWaitTimeout  time.Duration
	ProductSettleDelay  time.Duration
	LoginSettleDelay    time.Duration
	RateLimitMin        time.Duration
	RateLimitMax        time.Duration
	DatasetPath         string
}

type BrowserConfig struct {
	Headless          bool
	Timeout           time.Duration
	NavigationRetries int
	UserAgent         string
}

type StorageConfig struct {
	URL             string
	Key             string
	Table           string
	SkipPersistence bool
	CacheSize       int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type ServerConfig struct {
	StatusAddr      string
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// StorageKind names the persistence backend selected by the storage URL scheme.
type StorageKind string

const (
	StorageNone     StorageKind = ""
	StorageREST     StorageKind = "rest"
	StoragePostgres StorageKind = "postgres"
)

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Credentials: Credentials{
			Identity: getEnvOrDefault("SCRAPER_IDENTITY", ""),
			Secret:   getEnvOrDefault("SCRAPER_SECRET", ""),
		},
		Crawl: CrawlConfig{
			Brands:              getStringSliceOrDefault("SCRAPER_BRANDS", []string{"kravet"}),
			MaxProductsPerBrand: getIntOrDefault("MAX_PRODUCTS_PER_BRAND", 10000),
			MaxConcurrency:      getIntOrDefault("MAX_CONCURRENCY", 2),
			RequireAuth:         getBoolOrDefault("REQUIRE_AUTH", false),
			ListingWaitTimeout:  getDurationOrDefault("LISTING_WAIT_TIMEOUT", 30*time.Second),
			ProductSettleDelay:  getDurationOrDefault("PRODUCT_SETTLE_DELAY", time.Second),
			LoginSettleDelay:    getDurationOrDefault("LOGIN_SETTLE_DELAY", 3*time.Second),
			RateLimitMin:        getDurationOrDefault("RATE_LIMIT_MIN", 500*time.Millisecond),
			RateLimitMax:        getDurationOrDefault("RATE_LIMIT_MAX", 1500*time.Millisecond),
			DatasetPath:         getEnvOrDefault("DATASET_PATH", "output/items.jsonl"),
		},
		Browser: BrowserConfig{
			Headless:          getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:           getDurationOrDefault("BROWSER_TIMEOUT", 120*time.Second),
			NavigationRetries: getIntOrDefault("BROWSER_NAVIGATION_RETRIES", 2),
			UserAgent:         getEnvOrDefault("BROWSER_USER_AGENT", ""),
		},
		Storage: StorageConfig{
			URL:             getEnvOrDefault("STORAGE_URL", ""),
			Key:             getEnvOrDefault("STORAGE_KEY", ""),
			Table:           getEnvOrDefault("STORAGE_TABLE", "item_latest"),
			SkipPersistence: getBoolOrDefault("SKIP_PERSISTENCE", false),
			CacheSize:       getIntOrDefault("PERSIST_CACHE_SIZE", 4096),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:catalog_items"),
		},
		Server: ServerConfig{
			StatusAddr:      getEnvOrDefault("STATUS_ADDR", ""),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Crawl.Brands) == 0 {
		return fmt.Errorf("SCRAPER_BRANDS must name at least one brand")
	}

	if _, err := brand.Resolve(c.Crawl.Brands); err != nil {
		return fmt.Errorf("SCRAPER_BRANDS: %w", err)
	}

	if c.Crawl.MaxProductsPerBrand < 1 {
		return fmt.Errorf("MAX_PRODUCTS_PER_BRAND must be at least 1")
	}

	if c.Crawl.MaxConcurrency < 1 {
		return fmt.Errorf("MAX_CONCURRENCY must be at least 1")
	}

	if c.Crawl.RateLimitMin > c.Crawl.RateLimitMax {
		return fmt.Errorf("RATE_LIMIT_MIN cannot be greater than RATE_LIMIT_MAX")
	}

	if c.Storage.CacheSize < 1 {
		return fmt.Errorf("PERSIST_CACHE_SIZE must be at least 1")
	}

	if c.Storage.SkipPersistence {
		return nil
	}

	switch c.StorageKind() {
	case StorageNone:
		return fmt.Errorf("STORAGE_URL is required unless SKIP_PERSISTENCE is set")
	case StorageREST:
		if c.Storage.Key == "" {
			return fmt.Errorf("STORAGE_KEY is required for %s", c.Storage.URL)
		}
	case StoragePostgres:
	default:
		return fmt.Errorf("unsupported STORAGE_URL scheme: %s", c.Storage.URL)
	}

	return nil
}

// StorageKind reports which sink the storage URL selects. Unknown schemes
// are returned verbatim so Validate can name them.
func (c *Config) StorageKind() StorageKind {
	if c.Storage.URL == "" {
		return StorageNone
	}
	u, err := url.Parse(c.Storage.URL)
	if err != nil {
		return StorageKind("invalid")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return StorageREST
	case "postgres", "postgresql":
		return StoragePostgres
	default:
		return StorageKind(u.Scheme)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
