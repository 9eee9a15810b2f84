package events

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ingestkit/go-analytics-sdk/internal/metrics"
)

const (
	// DefaultRetryDelay is the delay before the first retry; each later retry waits about twice as long.
	DefaultRetryDelay = 100 * time.Millisecond

	maxRetryDelay = 30 * time.Second

	// TracerName identifies spans created by this package.
	TracerName = "github.com/ingestkit/go-analytics-sdk"
)

type defaultEventSender struct {
	httpClient *http.Client
	batchURI   string
	writeKey   string
	userAgent  string
	retryCount int
	retryDelay time.Duration
	timeout    time.Duration
	compress   bool
	loggers    ldlog.Loggers
	metrics    *metrics.Collector
	tracer     trace.Tracer
}

// NewDefaultEventSender creates the standard EventSender, which POSTs each payload to the batch
// endpoint and retries transient failures with exponential backoff.
func NewDefaultEventSender(config EventSenderConfiguration) EventSender {
	httpClient := config.Client
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	retryDelay := config.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer(TracerName)
	}
	return &defaultEventSender{
		httpClient: httpClient,
		batchURI:   config.BatchURI,
		writeKey:   config.WriteKey,
		userAgent:  config.UserAgent,
		retryCount: config.RetryCount,
		retryDelay: retryDelay,
		timeout:    config.Timeout,
		compress:   config.Compress,
		loggers:    config.Loggers,
		metrics:    config.Metrics,
		tracer:     tracer,
	}
}

func (s *defaultEventSender) SendEventData(ctx context.Context, data []byte, eventCount int) EventSenderResult {
	ctx, span := s.tracer.Start(ctx, "analytics.send_batch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("analytics.batch.messages", eventCount),
			attribute.Int("analytics.batch.bytes", len(data)),
		))
	defer span.End()

	body := data
	if s.compress {
		compressed, err := gzipPayload(data)
		if err != nil {
			s.loggers.Errorf("Unexpected error compressing batch: %s", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return EventSenderResult{Err: err}
		}
		body = compressed
	}

	description := fmt.Sprintf("%d messages", eventCount)
	attempts := 0
	operation := func() error {
		attempts++
		s.metrics.RecordAttempt()
		return s.post(ctx, body, description)
	}
	notify := func(err error, delay time.Duration) {
		s.loggers.Warnf("Error sending %s, will retry in %s: %s", description, delay, err)
	}

	err := backoff.RetryNotify(operation, s.newBackOff(ctx), notify)
	span.SetAttributes(attribute.Int("analytics.batch.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return EventSenderResult{Err: err, Attempts: attempts}
	}
	return EventSenderResult{Success: true, Attempts: attempts}
}

func (s *defaultEventSender) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(s.retryDelay),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0.2),
		backoff.WithMaxInterval(maxRetryDelay),
		backoff.WithMaxElapsedTime(0),
	)
	var retries uint64
	if s.retryCount > 0 {
		retries = uint64(s.retryCount)
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)
}

// post makes a single attempt. Errors that retrying cannot fix are marked permanent.
func (s *defaultEventSender) post(ctx context.Context, body []byte, description string) error {
	reqCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.batchURI, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(errors.Wrap(err, "unexpected error while creating batch request"))
	}
	req.SetBasicAuth(s.writeKey, "")
	req.Header.Set("Content-Type", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	if s.compress {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "error sending %s", description)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if err := checkForHTTPError(resp.StatusCode, s.batchURI); err != nil {
		if isHTTPErrorRecoverable(resp.StatusCode) {
			return err
		}
		s.loggers.Error(httpErrorMessage(resp.StatusCode, "sending "+description, "will retry"))
		return backoff.Permanent(err)
	}
	return nil
}

func gzipPayload(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
