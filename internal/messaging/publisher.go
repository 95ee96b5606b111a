package messaging

import (
	"context"
)

// Publisher defines the interface for publishing commands to the message queue
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher,Handler=MockHandler
type Publisher interface {
	// Publish wraps the payload in an envelope and publishes it on the command's queue
	Publish(ctx context.Context, command Command, payload interface{}) error
	// Close closes the connection
	Close()
}

// Handler processes one decoded queue message.
// The returned error decides the message outcome: nil acks it, a permanent
// error terminates it, a retry-later error delays redelivery, anything else redelivers it.
type Handler interface {
	Handle(ctx context.Context, env *Envelope) error
}
