// Package persistence upserts canonical records into the remote store keyed
// by SKU and reports an explicit outcome per record.
package persistence

import (
	"context"

	"github.com/SYNC-360/kravet-scraper/internal/events"
)

// Outcome is the result of persisting one record. Only OutcomeSaved and
// OutcomeUnchanged count as saved.
type Outcome string

const (
	OutcomeSaved     Outcome = "saved"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeDisabled  Outcome = "disabled"
	OutcomeFailed    Outcome = "failed"
)

func (o Outcome) Saved() bool {
	return o == OutcomeSaved || o == OutcomeUnchanged
}

// Sink merges one record into the store. Upserting the same record twice
// must leave the store as a single upsert would.
type Sink interface {
	Upsert(ctx context.Context, env *events.Envelope) error
	Name() string
}
