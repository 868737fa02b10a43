package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SYNC-360/kravet-scraper/internal/events"
)

// StoreError is a non-2xx answer from the REST store.
type StoreError struct {
	Status int
	Body   string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store returned status %d: %s", e.Status, e.Body)
}

// RESTSink posts rows to a PostgREST-style endpoint with merge-on-conflict
// semantics.
type RESTSink struct {
	client   *http.Client
	endpoint string
	key      string
}

type RESTConfig struct {
	BaseURL string
	Key     string
	Table   string
	Timeout time.Duration
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

func NewRESTSink(cfg RESTConfig) (*RESTSink, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if u, err := url.Parse(base); err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid storage url: %q", cfg.BaseURL)
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("storage table is required")
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &RESTSink{
		client:   client,
		endpoint: base + "/rest/v1/" + url.PathEscape(cfg.Table) + "?on_conflict=vendor_item_id",
		key:      cfg.Key,
	}, nil
}

func (s *RESTSink) Name() string { return "rest" }

func (s *RESTSink) Upsert(ctx context.Context, env *events.Envelope) error {
	item, err := BuildItem(env.Record)
	if err != nil {
		return err
	}

	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post item: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StoreError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *RESTSink) Endpoint() string {
	return s.endpoint
}
