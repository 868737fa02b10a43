package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SYNC-360/kravet-scraper/internal/models"
)

const (
	EventTypeItemScraped = "ITEM_SCRAPED"

	// Source identifies this crawler on every emitted event.
	Source = "kravet-scraper"

	// DefaultStream is the Redis stream catalog events are published to.
	DefaultStream = "stream:catalog_items"
)

// Envelope wraps one scraped record for the local dataset and the event stream.
type Envelope struct {
	EventID   uuid.UUID             `json:"event_id"`
	EventType string                `json:"event_type"`
	Timestamp time.Time             `json:"timestamp"`
	Source    string                `json:"source"`
	Record    *models.ProductRecord `json:"record"`
}

func NewItemScraped(record *models.ProductRecord) *Envelope {
	return &Envelope{
		EventID:   uuid.New(),
		EventType: EventTypeItemScraped,
		Timestamp: time.Now().UTC(),
		Source:    Source,
		Record:    record,
	}
}

// AggregateID is the natural key of the wrapped record.
func (e *Envelope) AggregateID() string {
	if e.Record == nil {
		return ""
	}
	return e.Record.SKU
}

// StreamValues lays the envelope out as the fields of one stream entry.
// The full envelope travels as JSON under "data".
func (e *Envelope) StreamValues() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	values := map[string]interface{}{
		"data":         string(data),
		"event_id":     e.EventID.String(),
		"event_type":   e.EventType,
		"timestamp":    fmt.Sprintf("%d", e.Timestamp.UnixNano()),
		"source":       e.Source,
		"aggregate_id": e.AggregateID(),
	}
	if e.Record != nil {
		values["brand"] = e.Record.BrandKey
	}

	return values, nil
}
