// Package analyticsntlm allows an analytics client to reach the ingestion API through a proxy server that
// uses NTLM authentication.
//
//	factory, err := analyticsntlm.NewNTLMProxyHTTPClientFactory("http://my-proxy:8080",
//	    "username", "password", "domain")
//	if err != nil {
//	    // there's some configuration problem such as an invalid proxy URL
//	}
//	config := analytics.Config{HTTPClientFactory: factory}
//	client, err := analytics.NewClient(writeKey, config)
package analyticsntlm

import (
	"net/http"
	"net/url"

	ntlm "github.com/launchdarkly/go-ntlm-proxy-auth"
	"github.com/pkg/errors"

	"github.com/ingestkit/go-analytics-sdk/analyticshttp"
)

// NewNTLMProxyHTTPClientFactory returns a factory function for creating HTTP clients that will connect
// through an NTLM-authenticated proxy server. Any analyticshttp options, such as a CA certificate for
// the proxy, are applied to the underlying transport.
func NewNTLMProxyHTTPClientFactory(proxyURL, username, password, domain string,
	options ...analyticshttp.TransportOption) (func() *http.Client, error) {
	if proxyURL == "" || username == "" || password == "" {
		return nil, errors.New("proxyURL, username, and password are required")
	}
	parsedProxyURL, err := url.Parse(proxyURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid proxy URL %s", proxyURL)
	}
	// Build one transport up front so that bad options are reported now rather than per client.
	if _, _, err := analyticshttp.NewHTTPTransport(options...); err != nil {
		return nil, err
	}
	return func() *http.Client {
		client := &http.Client{}
		if transport, dialer, err := analyticshttp.NewHTTPTransport(options...); err == nil {
			transport.DialContext = ntlm.NewNTLMProxyDialContext(dialer, *parsedProxyURL,
				username, password, domain, transport.TLSClientConfig)
			client.Transport = transport
		}
		return client
	}, nil
}
