package internal

import (
	"net/http"
	"time"

	"github.com/ingestkit/go-analytics-sdk/analyticshttp"
)

// NewHTTPClient creates the HTTP client owned by one analytics client. No overall client timeout is set;
// the per-request timeout is applied by the sender so that it surfaces as a retryable error.
func NewHTTPClient(connectTimeout time.Duration, options ...analyticshttp.TransportOption) (*http.Client, error) {
	allOpts := []analyticshttp.TransportOption{analyticshttp.ConnectTimeoutOption(connectTimeout)}
	allOpts = append(allOpts, options...)
	transport, _, err := analyticshttp.NewHTTPTransport(allOpts...)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: transport}, nil
}
