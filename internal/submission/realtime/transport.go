package realtime

import "context"

// Stream is one open subscription. Messages is closed when the stream ends,
// after which Err reports why (nil for a clean close).
type Stream interface {
	Messages() <-chan []byte
	Err() error
	Close() error
}

// Transport opens a subscription to the status topic of one submission.
type Transport interface {
	Open(ctx context.Context, submissionID string) (Stream, error)
}
