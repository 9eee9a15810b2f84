package events

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrQueueFull is reported to a message's callback when the queue is at its configured maximum.
	ErrQueueFull = errors.New("failed to enqueue message because the queue is full; consider increasing MaxQueueSize")
	// ErrClosed is reported to a message's callback when the processor has already been closed.
	ErrClosed = errors.New("the analytics client has been closed")
	// ErrMessageTooLarge is returned when a single encoded message exceeds the maximum message size.
	ErrMessageTooLarge = errors.New("message exceeds the maximum message size")
)

// Batch describes one request to the ingestion API. The same value is passed to the callback of every
// message it carried.
type Batch struct {
	Messages  []map[string]interface{} `json:"batch"`
	Timestamp time.Time                `json:"timestamp"`
	SentAt    time.Time                `json:"sentAt"`
}

// Callback receives the outcome of delivering a message. batch is nil when the message never left
// the queue (for instance when it was dropped).
type Callback func(batch *Batch, err error)

// EventProcessor defines the interface for buffering and dispatching analytics messages.
type EventProcessor interface {
	// SendEvent enqueues an enriched message. It returns an error only if the message can never be
	// sent; capacity problems are reported through the callback.
	SendEvent(message map[string]interface{}, callback Callback) error
	// Flush removes up to one batch from the front of the queue and dispatches it. The callback is
	// invoked once that batch has been resolved, or immediately if the queue was empty.
	Flush(callback Callback)
	// Drain blocks until the queue is empty and no batch is in flight, or the context is done.
	Drain(ctx context.Context) error
	// Close flushes everything that is queued, waits for in-flight batches, and stops the processor.
	// Subsequent calls to SendEvent report ErrClosed.
	Close() error
}

// EventSender defines the interface for delivering an already-encoded batch payload.
type EventSender interface {
	// SendEventData attempts to deliver a payload, retrying as configured.
	SendEventData(ctx context.Context, data []byte, eventCount int) EventSenderResult
}

// EventSenderResult is the return type for EventSender.SendEventData.
type EventSenderResult struct {
	// Success is true if the payload was delivered.
	Success bool
	// Err is the terminating error when Success is false.
	Err error
	// Attempts is the number of HTTP requests that were made.
	Attempts int
}
