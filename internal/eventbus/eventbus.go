// Package eventbus moves event envelopes between producers and the dispatcher.
// Sources are drained by a Runner; Publishers back the ingest endpoint.
package eventbus

import (
	"context"

	"anoa.com/boardpush/internal/event"
)

// Message is one envelope read from a source. Ack marks it consumed.
type Message struct {
	Key   []byte
	Value []byte
	ack   func(ctx context.Context) error
}

func (m Message) Ack(ctx context.Context) error {
	if m.ack == nil {
		return nil
	}
	return m.ack(ctx)
}

type Source interface {
	// Fetch blocks until a message is available or ctx ends.
	Fetch(ctx context.Context) (Message, error)
	Close() error
}

type Publisher interface {
	Publish(ctx context.Context, ev event.Event) error
	Close() error
}

// Dispatcher consumes decoded events.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev event.Event) error
}
