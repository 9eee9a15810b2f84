package analytics

import (
	"github.com/pkg/errors"

	"github.com/ingestkit/go-analytics-sdk/internal/events"
	"github.com/ingestkit/go-analytics-sdk/internal/validation"
)

var (
	// ErrMissingWriteKey is returned by NewClient when the write key is empty.
	ErrMissingWriteKey = errors.New("a write key is required")

	// ErrNilClient is returned when a method is called on a nil *Client.
	ErrNilClient = errors.New("method called on a nil analytics client")

	// ErrQueueFull is reported to a message's callback when the queue is at MaxQueueCount or
	// MaxQueueSize. The message is dropped.
	ErrQueueFull = events.ErrQueueFull

	// ErrClosed is reported to a message's callback when the client has been closed.
	ErrClosed = events.ErrClosed

	// ErrMessageTooLarge is returned, wrapped, when one encoded message exceeds MaxMessageSize.
	ErrMessageTooLarge = events.ErrMessageTooLarge
)

// ValidationError describes a message that is missing a required field or has a field of the wrong
// type. Field is empty when the message itself is nil.
type ValidationError = validation.Error

// HTTPStatusError is reported to callbacks when the ingestion API answers with a status that is not
// retried, or with a retryable status after all retries are exhausted.
type HTTPStatusError = events.HTTPStatusError
