package analyticshttp

import (
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v3/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTransportDoesNotAcceptSelfSignedCert(t *testing.T) {
	httphelpers.WithSelfSignedServer(httphelpers.HandlerWithStatus(200),
		func(server *httptest.Server, certData []byte, certs *x509.CertPool) {
			transport, _, err := NewHTTPTransport()
			require.NoError(t, err)

			client := &http.Client{Transport: transport}
			_, err = client.Get(server.URL)
			require.Error(t, err)
		})
}

func TestCanAcceptSelfSignedCertWithCA(t *testing.T) {
	httphelpers.WithSelfSignedServer(httphelpers.HandlerWithStatus(200),
		func(server *httptest.Server, certData []byte, certs *x509.CertPool) {
			transport, _, err := NewHTTPTransport(CACertOption(certData))
			require.NoError(t, err)

			client := &http.Client{Transport: transport}
			resp, err := client.Get(server.URL)
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, 200, resp.StatusCode)
		})
}

func TestCanAcceptSelfSignedCertWithCAFile(t *testing.T) {
	httphelpers.WithSelfSignedServer(httphelpers.HandlerWithStatus(200),
		func(server *httptest.Server, certData []byte, certs *x509.CertPool) {
			certFile := filepath.Join(t.TempDir(), "ca.pem")
			require.NoError(t, os.WriteFile(certFile, certData, 0o600))

			transport, _, err := NewHTTPTransport(CACertFileOption(certFile))
			require.NoError(t, err)

			client := &http.Client{Transport: transport}
			resp, err := client.Get(server.URL)
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, 200, resp.StatusCode)
		})
}

func TestErrorForNonexistentCertFile(t *testing.T) {
	_, _, err := NewHTTPTransport(CACertFileOption(filepath.Join(t.TempDir(), "missing.pem")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't read CA certificate file")
}

func TestErrorForInvalidCertData(t *testing.T) {
	_, _, err := NewHTTPTransport(CACertOption([]byte("sorry")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid CA certificate data")
}

func TestConnectTimeoutOption(t *testing.T) {
	_, dialer, err := NewHTTPTransport(ConnectTimeoutOption(2 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, dialer.Timeout)

	_, dialer, err = NewHTTPTransport(ConnectTimeoutOption(0))
	require.NoError(t, err)
	assert.Equal(t, DefaultConnectTimeout, dialer.Timeout)
}

func TestProxyOption(t *testing.T) {
	proxyURL, err := url.Parse("http://my-proxy:8080")
	require.NoError(t, err)
	transport, _, err := NewHTTPTransport(ProxyOption(*proxyURL))
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", "https://api.segment.io/v1/batch", nil)
	actual, err := transport.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, proxyURL, actual)
}

func TestRequestsGoThroughProxy(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(200))
	httphelpers.WithServer(handler, func(proxy *httptest.Server) {
		proxyURL, err := url.Parse(proxy.URL)
		require.NoError(t, err)
		transport, _, err := NewHTTPTransport(ProxyOption(*proxyURL))
		require.NoError(t, err)

		client := &http.Client{Transport: transport}
		resp, err := client.Get("http://ingest.example/v1/batch")
		require.NoError(t, err)
		_ = resp.Body.Close()

		r := <-requestsCh
		assert.Equal(t, "http://ingest.example/v1/batch", r.Request.RequestURI)
	})
}
