package events

import (
	"context"
	"errors"
)

// Emitter receives every record the crawl produces, whether or not it was
// persisted remotely.
type Emitter interface {
	Emit(ctx context.Context, env *Envelope) error
}

// Fanout emits to every member and joins their errors.
type Fanout []Emitter

func (f Fanout) Emit(ctx context.Context, env *Envelope) error {
	var errs []error
	for _, e := range f {
		if err := e.Emit(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit publishes env to the stream.
func (p *StreamPublisher) Emit(ctx context.Context, env *Envelope) error {
	_, err := p.Publish(ctx, env)
	return err
}
