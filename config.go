package analytics

import (
	"net/http"
	"strings"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/ingestkit/go-analytics-sdk/analyticshttp"
)

const (
	// DefaultHost is the default base URL of the ingestion API.
	DefaultHost = "https://api.segment.io"
	// DefaultPath is the default path of the batch endpoint.
	DefaultPath = "/v1/batch"
	// DefaultFlushAt is the default number of messages that triggers a flush.
	DefaultFlushAt = 20
	// DefaultFlushInterval is the default idle time after the last message before the queue is flushed.
	DefaultFlushInterval = 10 * time.Second
	// DefaultMaxQueueSize is the default byte budget for queued messages.
	DefaultMaxQueueSize = 450 * 1024
	// DefaultMaxQueueCount is the default limit on the number of queued messages.
	DefaultMaxQueueCount = 10000
	// DefaultMaxMessageSize is the default limit on the encoded size of one message.
	DefaultMaxMessageSize = 32 * 1024
	// DefaultMaxConcurrentFlushes is the default limit on batches in flight at once.
	DefaultMaxConcurrentFlushes = 5
	// DefaultRetryCount is the default number of retries for a batch that fails transiently.
	DefaultRetryCount = 3
)

// Config exposes the configuration options of an analytics client.
//
// All of these settings are optional, so an empty Config struct is always valid. See the description of
// each field for the default behavior if it is not set.
//
// Numeric options where zero is meaningful use ldvalue.OptionalInt, so that an explicit zero can be told
// apart from "not set":
//
//	config := analytics.Config{
//	    FlushAt:    ldvalue.NewOptionalInt(1),
//	    RetryCount: ldvalue.NewOptionalInt(0), // never retry
//	}
type Config struct {
	// Base URL of the ingestion API. Trailing slashes are removed. Defaults to DefaultHost.
	Host string

	// Path of the batch endpoint. Trailing slashes are removed. Defaults to DefaultPath.
	Path string

	// Number of queued messages that triggers an immediate flush, and the largest number of messages in
	// one batch. Values below 1 are raised to 1. Defaults to DefaultFlushAt.
	FlushAt ldvalue.OptionalInt

	// Idle time after the most recent message before the queue is flushed. Zero means
	// DefaultFlushInterval; a negative value disables the timer, so only size triggers and explicit
	// flushes send anything.
	FlushInterval time.Duration

	// Byte budget for all queued messages, measured on their JSON encoding. Reaching it triggers a flush;
	// messages that arrive while the queue is at or over it are dropped with ErrQueueFull. Zero rejects
	// every message. Defaults to DefaultMaxQueueSize.
	MaxQueueSize ldvalue.OptionalInt

	// Limit on the number of queued messages. Messages that arrive while the queue is at this limit are
	// dropped with ErrQueueFull. Defaults to DefaultMaxQueueCount.
	MaxQueueCount ldvalue.OptionalInt

	// Largest encoded size of one message. Larger messages are rejected with ErrMessageTooLarge.
	// Zero means DefaultMaxMessageSize.
	MaxMessageSize int

	// Maximum number of batches being delivered at once. Zero means DefaultMaxConcurrentFlushes.
	MaxConcurrentFlushes int

	// Timeout for each HTTP request. An expired request counts as a transient failure and is retried.
	// Zero disables the timeout.
	Timeout time.Duration

	// Number of times a batch is retried after a network error, a 5xx status, or a 429 status.
	// Zero disables retry. Defaults to DefaultRetryCount.
	RetryCount ldvalue.OptionalInt

	// Set to true to make the client a no-op. Messages are still validated, and their callbacks are
	// invoked immediately with a nil batch and a nil error.
	Disabled bool

	// Set to true to gzip request bodies.
	Compress bool

	// The HTTP client to use. If nil, HTTPClientFactory is used; if that is also nil, the client creates
	// its own transport from HTTPOptions. The retry policy never modifies this client.
	HTTPClient *http.Client

	// Creates the HTTP client, for instance analyticsntlm.NewNTLMProxyHTTPClientFactory.
	HTTPClientFactory func() *http.Client

	// Options for the transport the client builds when neither HTTPClient nor HTTPClientFactory is set.
	HTTPOptions []analyticshttp.TransportOption

	// Connection timeout for the transport the client builds. Zero means
	// analyticshttp.DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// Destination for log output. The zero value logs at Info level and above to standard error.
	Loggers ldlog.Loggers

	// If set, queue and delivery metrics are registered here.
	MetricsRegisterer prometheus.Registerer

	// Provider for the span created around each batch delivery. If nil, the global OpenTelemetry
	// provider is used.
	TracerProvider trace.TracerProvider

	now        func() time.Time
	newID      func() string
	retryDelay time.Duration
}

type resolvedConfig struct {
	host                 string
	path                 string
	flushAt              int
	flushInterval        time.Duration
	maxQueueSize         int
	maxQueueCount        int
	maxMessageSize       int
	maxConcurrentFlushes int
	timeout              time.Duration
	retryCount           int
	disabled             bool
	compress             bool
}

func (c Config) resolve() resolvedConfig {
	r := resolvedConfig{
		host:                 strings.TrimRight(c.Host, "/"),
		path:                 strings.TrimRight(c.Path, "/"),
		flushAt:              c.FlushAt.OrElse(DefaultFlushAt),
		flushInterval:        c.FlushInterval,
		maxQueueSize:         c.MaxQueueSize.OrElse(DefaultMaxQueueSize),
		maxQueueCount:        c.MaxQueueCount.OrElse(DefaultMaxQueueCount),
		maxMessageSize:       c.MaxMessageSize,
		maxConcurrentFlushes: c.MaxConcurrentFlushes,
		timeout:              c.Timeout,
		retryCount:           c.RetryCount.OrElse(DefaultRetryCount),
		disabled:             c.Disabled,
		compress:             c.Compress,
	}
	if r.host == "" {
		r.host = DefaultHost
	}
	if r.path == "" {
		r.path = DefaultPath
	}
	if r.flushAt < 1 {
		r.flushAt = 1
	}
	if r.flushInterval == 0 {
		r.flushInterval = DefaultFlushInterval
	}
	if r.maxQueueSize < 0 {
		r.maxQueueSize = 0
	}
	if r.maxQueueCount < 0 {
		r.maxQueueCount = 0
	}
	if r.maxMessageSize <= 0 {
		r.maxMessageSize = DefaultMaxMessageSize
	}
	if r.maxConcurrentFlushes <= 0 {
		r.maxConcurrentFlushes = DefaultMaxConcurrentFlushes
	}
	if r.timeout < 0 {
		r.timeout = 0
	}
	if r.retryCount < 0 {
		r.retryCount = 0
	}
	return r
}

func (r resolvedConfig) batchURI() string {
	return r.host + r.path
}

// Describe returns the effective configuration, with every default applied, as a JSON-like value.
// It is meant for diagnostics and never includes credentials.
func (c Config) Describe() ldvalue.Value {
	r := c.resolve()
	flushInterval := ldvalue.Null()
	if r.flushInterval > 0 {
		flushInterval = durationToMillisValue(r.flushInterval)
	}
	return ldvalue.ObjectBuild().
		Set("batchURI", ldvalue.String(r.batchURI())).
		Set("flushAt", ldvalue.Int(r.flushAt)).
		Set("flushIntervalMillis", flushInterval).
		Set("maxQueueSize", ldvalue.Int(r.maxQueueSize)).
		Set("maxQueueCount", ldvalue.Int(r.maxQueueCount)).
		Set("maxMessageSize", ldvalue.Int(r.maxMessageSize)).
		Set("maxConcurrentFlushes", ldvalue.Int(r.maxConcurrentFlushes)).
		Set("timeoutMillis", durationToMillisValue(r.timeout)).
		Set("retryCount", ldvalue.Int(r.retryCount)).
		Set("disabled", ldvalue.Bool(r.disabled)).
		Set("compress", ldvalue.Bool(r.compress)).
		Set("customHTTPClient", ldvalue.Bool(c.HTTPClient != nil || c.HTTPClientFactory != nil)).
		Set("metrics", ldvalue.Bool(c.MetricsRegisterer != nil)).
		Build()
}

func durationToMillisValue(d time.Duration) ldvalue.Value {
	return ldvalue.Float64(float64(uint64(d) / uint64(time.Millisecond)))
}
