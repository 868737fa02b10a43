package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/SYNC-360/kravet-scraper/internal/database"
	"github.com/SYNC-360/kravet-scraper/internal/events"
)

// PostgresSink upserts the item row and records its ITEM_SCRAPED outbox
// event in the same transaction.
type PostgresSink struct {
	db     *database.DB
	items  *database.ItemRepository
	outbox *database.OutboxRepository
	stream string
}

func NewPostgresSink(db *database.DB, table, stream string) (*PostgresSink, error) {
	items, err := database.NewItemRepository(db, table)
	if err != nil {
		return nil, err
	}
	if stream == "" {
		stream = events.DefaultStream
	}

	return &PostgresSink{
		db:     db,
		items:  items,
		outbox: database.NewOutboxRepository(db),
		stream: stream,
	}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Upsert(ctx context.Context, env *events.Envelope) error {
	item, err := BuildItem(env.Record)
	if err != nil {
		return err
	}

	event, err := database.NewItemScrapedEvent(env, s.stream)
	if err != nil {
		return err
	}

	err = s.db.Transaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.items.UpsertWithTx(ctx, tx, item); err != nil {
			return err
		}
		return s.outbox.InsertWithTx(ctx, tx, event)
	})
	if err != nil {
		return fmt.Errorf("failed to persist %s: %w", item.VendorItemID, err)
	}

	return nil
}
