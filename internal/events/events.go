// Package events defines the write-event bus that decouples complaint
// intake from the asynchronous analysis worker. Delivery is at-least-once;
// consumers must be idempotent.
package events

import "context"

// Event announces a document write in a store namespace.
type Event struct {
	Namespace string `json:"namespace"`
	ID        string `json:"id"`
}

// Bus transports write events from producers to the analysis worker.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context) (<-chan Event, error)
	Close() error
}
