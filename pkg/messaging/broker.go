// Package messaging abstracts the pub/sub transport used to fan out
// domain events. The outbox processor publishes through it and the
// notification service both publishes and consumes.
package messaging

import "context"

// Broker is a pub/sub transport. Publish marshals the message to JSON
// before sending. The channel returned by Subscribe carries raw payloads
// and is closed when the subscription's context is cancelled.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
