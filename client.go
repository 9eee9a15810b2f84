package analytics

import (
	"context"
	"net/http"
	"sync"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ingestkit/go-analytics-sdk/internal"
	"github.com/ingestkit/go-analytics-sdk/internal/enrich"
	"github.com/ingestkit/go-analytics-sdk/internal/events"
	"github.com/ingestkit/go-analytics-sdk/internal/metrics"
	"github.com/ingestkit/go-analytics-sdk/internal/validation"
)

// LibraryName is reported in context.library.name of every message and in the User-Agent header.
const LibraryName = "analytics-go"

const metricsNamespace = "analytics"

// Client is the analytics client. It validates and enriches messages, buffers them, and delivers them to
// the ingestion API in batches.
//
// A Client is safe for concurrent use. Create it with NewClient and call Close before the application
// exits, or queued messages may be lost.
type Client struct {
	writeKey  string
	config    resolvedConfig
	loggers   ldlog.Loggers
	enricher  enrich.Enricher
	processor events.EventProcessor
	closeOnce sync.Once
	closeErr  error
}

type flushResult struct {
	batch *Batch
	err   error
}

// NewClient creates a new client instance for the given write key.
//
// It returns ErrMissingWriteKey if writeKey is empty, or an error if the HTTP transport described by
// config.HTTPOptions cannot be created. No network activity happens until the first message is queued.
func NewClient(writeKey string, config Config) (*Client, error) {
	if writeKey == "" {
		return nil, ErrMissingWriteKey
	}
	resolved := config.resolve()

	loggers := config.Loggers
	loggers.SetPrefix(internal.LogPrefix)

	var collector *metrics.Collector
	if config.MetricsRegisterer != nil {
		collector = metrics.NewCollector(metricsNamespace, config.MetricsRegisterer, loggers)
	}

	client := &Client{
		writeKey: writeKey,
		config:   resolved,
		loggers:  loggers,
		enricher: enrich.Enricher{
			Library: enrich.Library{Name: LibraryName, Version: Version},
			Now:     config.now,
			NewID:   config.newID,
		},
	}

	if resolved.disabled {
		loggers.Info("Client is disabled; messages will be validated but not sent")
		client.processor = events.NewNullEventProcessor()
		return client, nil
	}

	httpClient, err := makeHTTPClient(config)
	if err != nil {
		return nil, err
	}

	var tracer trace.Tracer
	if config.TracerProvider != nil {
		tracer = config.TracerProvider.Tracer(events.TracerName)
	}

	sender := events.NewDefaultEventSender(events.EventSenderConfiguration{
		Client:     httpClient,
		BatchURI:   resolved.batchURI(),
		WriteKey:   writeKey,
		UserAgent:  LibraryName + "/" + Version,
		RetryCount: resolved.retryCount,
		RetryDelay: config.retryDelay,
		Timeout:    resolved.timeout,
		Compress:   resolved.compress,
		Loggers:    loggers,
		Metrics:    collector,
		Tracer:     tracer,
	})

	flushInterval := resolved.flushInterval
	if flushInterval < 0 {
		flushInterval = 0
	}
	client.processor = events.NewDefaultEventProcessor(events.EventsConfiguration{
		FlushAt:              resolved.flushAt,
		FlushInterval:        flushInterval,
		MaxQueueSize:         resolved.maxQueueSize,
		MaxQueueCount:        resolved.maxQueueCount,
		MaxMessageSize:       resolved.maxMessageSize,
		MaxConcurrentFlushes: resolved.maxConcurrentFlushes,
		Loggers:              loggers,
		EventSender:          sender,
		Metrics:              collector,
		Now:                  config.now,
	})

	loggers.Infof("Starting analytics client %s, sending to %s", Version, resolved.batchURI())
	return client, nil
}

func makeHTTPClient(config Config) (*http.Client, error) {
	if config.HTTPClient != nil {
		return config.HTTPClient, nil
	}
	if config.HTTPClientFactory != nil {
		if c := config.HTTPClientFactory(); c != nil {
			return c, nil
		}
	}
	return internal.NewHTTPClient(config.ConnectTimeout, config.HTTPOptions...)
}

// Identify records who the user is and what is known about them.
//
// The message must contain "userId" or "anonymousId". It returns a *ValidationError if the message is
// malformed, in which case the callback is never invoked. The callback may be nil.
func (c *Client) Identify(message Message, callback Callback) error {
	return c.enqueue(KindIdentify, message, callback)
}

// Group associates a user with a group. The message must contain "groupId" and either "userId" or
// "anonymousId".
func (c *Client) Group(message Message, callback Callback) error {
	return c.enqueue(KindGroup, message, callback)
}

// Track records an action the user performed. The message must contain "event" and either "userId" or
// "anonymousId".
func (c *Client) Track(message Message, callback Callback) error {
	return c.enqueue(KindTrack, message, callback)
}

// Page records a page view. The message must contain "userId" or "anonymousId".
func (c *Client) Page(message Message, callback Callback) error {
	return c.enqueue(KindPage, message, callback)
}

// Screen records a mobile screen view. The message must contain "userId" or "anonymousId".
func (c *Client) Screen(message Message, callback Callback) error {
	return c.enqueue(KindScreen, message, callback)
}

// Alias merges two user identities. The message must contain "userId" and "previousId"; a legacy
// "from" field is accepted in place of "previousId".
func (c *Client) Alias(message Message, callback Callback) error {
	return c.enqueue(KindAlias, message, callback)
}

func (c *Client) enqueue(kind Kind, message Message, callback Callback) error {
	if c == nil {
		internal.LogErrorNilPointerMethod("Client")
		return ErrNilClient
	}
	if err := validation.Validate(message, string(kind)); err != nil {
		return err
	}
	return c.processor.SendEvent(c.enricher.Enrich(message, string(kind)), callback)
}

// Flush dispatches up to one batch from the front of the queue and waits for its outcome.
//
// It returns the batch that was sent, or nil if the queue was empty. If ctx is done first, Flush
// returns ctx.Err(); the batch is still delivered in the background.
func (c *Client) Flush(ctx context.Context) (*Batch, error) {
	if c == nil {
		internal.LogErrorNilPointerMethod("Client")
		return nil, ErrNilClient
	}
	resultCh := make(chan flushResult, 1)
	c.processor.Flush(func(batch *Batch, err error) {
		resultCh <- flushResult{batch: batch, err: err}
	})
	select {
	case r := <-resultCh:
		return r.batch, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FlushAsync is like Flush but reports the outcome to callback instead of waiting for it.
func (c *Client) FlushAsync(callback Callback) {
	if c == nil {
		internal.LogErrorNilPointerMethod("Client")
		return
	}
	c.processor.Flush(callback)
}

// Drain sends everything that is queued and waits until no batch is in flight, or until ctx is done.
// Unlike Close, the client stays usable afterward.
func (c *Client) Drain(ctx context.Context) error {
	if c == nil {
		internal.LogErrorNilPointerMethod("Client")
		return ErrNilClient
	}
	return c.processor.Drain(ctx)
}

// Close sends everything that is queued, waits for all deliveries to finish, and shuts the client down.
//
// Messages sent after Close are reported to their callbacks with ErrClosed. Calling Close more than once
// is harmless.
func (c *Client) Close() error {
	if c == nil {
		internal.LogErrorNilPointerMethod("Client")
		return ErrNilClient
	}
	c.closeOnce.Do(func() {
		c.loggers.Info("Closing analytics client")
		c.closeErr = c.processor.Close()
	})
	return c.closeErr
}
