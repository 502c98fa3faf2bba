package queue

import "context"

const (
	// IntakeQueueName is the work queue for incoming prospect announcements.
	IntakeQueueName = "prospects.intake"
	// IntakeDLQName receives intake messages rejected as unprocessable.
	IntakeDLQName = "dlq.prospects.intake"
)

// Publisher publishes prospect messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg ProspectMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg ProspectMessage) error

// Consumer consumes prospect messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
