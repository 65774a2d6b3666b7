// Package chanbus provides an in-process implementation of events.Bus
// backed by a buffered channel. Suitable for single-instance deployments
// and tests.
package chanbus

import (
	"context"
	"sync"

	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/redress/internal/events"
)

var errClosed = xerrors.New("chanbus: closed")

// Bus fans write events to subscribers over a shared buffered channel.
type Bus struct {
	ch   chan events.Event
	mu   sync.Mutex
	done bool
}

// New creates a Bus with the given buffer size.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{ch: make(chan events.Event, buffer)}
}

// Publish enqueues the event, blocking if the buffer is full until the
// context is cancelled.
func (b *Bus) Publish(ctx context.Context, ev events.Event) error {
	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		return errClosed
	}
	b.mu.Unlock()

	select {
	case b.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns the shared event channel. Multiple subscribers compete
// for events, which gives worker-pool semantics for free.
func (b *Bus) Subscribe(_ context.Context) (<-chan events.Event, error) {
	return b.ch, nil
}

// Close stops the bus. Pending buffered events are still delivered.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.done {
		b.done = true
		close(b.ch)
	}
	return nil
}
