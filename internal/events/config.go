package events

import (
	"net/http"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ingestkit/go-analytics-sdk/internal/metrics"
)

// MaxBatchSize is the largest request body the ingestion API accepts. A batch is cut short before it
// would exceed this, regardless of FlushAt.
const MaxBatchSize = 500 * 1024

// EventsConfiguration contains options affecting the behavior of the events engine. Values are
// expected to have been normalized already; zero values are taken literally.
type EventsConfiguration struct {
	// Maximum number of messages in one batch. Must be at least 1.
	FlushAt int
	// Idle time after the most recent enqueue before the queue is flushed. Zero or negative
	// disables the timer.
	FlushInterval time.Duration
	// Byte budget for all queued messages.
	MaxQueueSize int
	// Count budget for queued messages.
	MaxQueueCount int
	// Largest encoded size allowed for a single message.
	MaxMessageSize int
	// Maximum number of batches that may be in flight at once.
	MaxConcurrentFlushes int
	// The destination for log output.
	Loggers ldlog.Loggers
	// Delivers encoded batches.
	EventSender EventSender
	// Optional metrics collector; nil disables metrics.
	Metrics *metrics.Collector
	// Used by tests to control timestamps.
	Now func() time.Time
}

// EventSenderConfiguration contains parameters for the default EventSender.
type EventSenderConfiguration struct {
	// The HTTP client instance to use. It is owned by this sender; the sender does not modify it.
	Client *http.Client
	// Full URL of the batch endpoint.
	BatchURI string
	// Write key sent as the Basic auth username.
	WriteKey string
	// Value for the User-Agent header.
	UserAgent string
	// Number of retries after the first attempt. Zero disables retry.
	RetryCount int
	// Initial backoff delay before the first retry.
	RetryDelay time.Duration
	// Per-request timeout. Zero disables it.
	Timeout time.Duration
	// Compress request bodies with gzip.
	Compress bool
	// The destination for log output.
	Loggers ldlog.Loggers
	// Optional metrics collector.
	Metrics *metrics.Collector
	// Tracer used for one span per batch; nil uses the global provider.
	Tracer trace.Tracer
}
