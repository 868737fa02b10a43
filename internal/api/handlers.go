package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/SYNC-360/kravet-scraper/internal/brand"
	"github.com/SYNC-360/kravet-scraper/internal/models"
)

// StatsProvider exposes the live crawl statistics.
type StatsProvider interface {
	Stats() *models.CrawlStats
}

// OutboxStatus reports the transactional outbox backlog. It is nil unless
// the Postgres sink is in use.
type OutboxStatus interface {
	GetPendingCount(ctx context.Context) (int64, error)
	GetDeadLetterCount(ctx context.Context) (int64, error)
}

const (
	pendingWarnThreshold    = 1000
	deadLetterFailThreshold = 100
)

type Handlers struct {
	stats  StatsProvider
	outbox OutboxStatus
	logger *slog.Logger
}

func NewHandlers(stats StatsProvider, outbox OutboxStatus, logger *slog.Logger) *Handlers {
	return &Handlers{
		stats:  stats,
		outbox: outbox,
		logger: logger,
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string        `json:"status"`
	Message string        `json:"message,omitempty"`
	Session string        `json:"session,omitempty"`
	Outbox  *OutboxHealth `json:"outbox,omitempty"`
}

type OutboxHealth struct {
	Pending    int64 `json:"pending"`
	DeadLetter int64 `json:"dead_letter"`
}

// Health reports liveness and, with an outbox, its backlog.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if s := h.stats.Stats(); s != nil {
		resp.Session = s.SessionState
	}

	status := http.StatusOK
	if h.outbox != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		pending, err := h.outbox.GetPendingCount(ctx)
		if err != nil {
			h.logger.Error("failed to count pending outbox events", "error", err)
		}
		deadLetter, err := h.outbox.GetDeadLetterCount(ctx)
		if err != nil {
			h.logger.Error("failed to count dead letter events", "error", err)
		}
		resp.Outbox = &OutboxHealth{Pending: pending, DeadLetter: deadLetter}

		if pending > pendingWarnThreshold {
			resp.Status = "warning"
			resp.Message = "high number of pending outbox events"
		}
		if deadLetter > deadLetterFailThreshold {
			resp.Status = "error"
			resp.Message = "high number of dead letter events"
			status = http.StatusServiceUnavailable
		}
	}

	h.respondJSON(w, status, resp)
}

// GetStats returns the latest crawl statistics snapshot.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.stats.Stats()
	if stats == nil {
		h.respondError(w, http.StatusServiceUnavailable, "crawl not started")
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

// ListBrands returns the brand table.
func (h *Handlers) ListBrands(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, brand.All())
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
