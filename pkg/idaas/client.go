package idaas

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"
)

// Default HTTP timeouts. Each is bounded to [MinTimeout, MaxTimeout] by the
// configuration surface.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = 10 * time.Second
	MinTimeout            = 2 * time.Second
	MaxTimeout            = 60 * time.Second
)

// HTTPClient defines the interface for making HTTP requests. This
// abstraction allows for testing and custom implementations.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClientOptions configures a transport built by NewHTTPClient.
type HTTPClientOptions struct {
	// ConnectTimeout bounds connection establishment. Zero means
	// DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// ReadTimeout bounds waiting for response headers; the overall request
	// is bounded by ConnectTimeout plus ReadTimeout. Zero means
	// DefaultReadTimeout.
	ReadTimeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification (not
	// recommended).
	InsecureSkipVerify bool
}

// defaultHTTPClient is a production HTTP client with sensible defaults.
type defaultHTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates an HTTP client optimized for token endpoint and
// metadata service requests.
func NewHTTPClient(opts HTTPClientOptions) HTTPClient {
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	if opts.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       tlsConfig,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: readTimeout,
	}

	return &defaultHTTPClient{
		client: &http.Client{
			Timeout:   connectTimeout + readTimeout,
			Transport: &retryTransport{base: transport},
		},
	}
}

// Do executes the HTTP request.
func (c *defaultHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

var (
	sharedClientMu sync.Mutex
	sharedClient   HTTPClient
)

// DefaultHTTPClient returns the process-wide shared HTTP client, creating it
// with default options on first use. Multiple providers share its connection
// pool.
func DefaultHTTPClient() HTTPClient {
	sharedClientMu.Lock()
	defer sharedClientMu.Unlock()
	if sharedClient == nil {
		sharedClient = NewHTTPClient(HTTPClientOptions{})
	}
	return sharedClient
}

// SetDefaultHTTPClient replaces the process-wide shared HTTP client. Tests
// use this to install fakes.
func SetDefaultHTTPClient(client HTTPClient) {
	sharedClientMu.Lock()
	defer sharedClientMu.Unlock()
	sharedClient = client
}

// ResetDefaultHTTPClient discards the process-wide shared HTTP client; the
// next DefaultHTTPClient call recreates it with default options.
func ResetDefaultHTTPClient() {
	sharedClientMu.Lock()
	defer sharedClientMu.Unlock()
	sharedClient = nil
}

// retryTransport wraps an http.RoundTripper with retry logic for transient
// failures.
type retryTransport struct {
	base http.RoundTripper
}

// RoundTrip implements http.RoundTripper with retry logic.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	const maxRetries = 3
	const initialBackoff = 100 * time.Millisecond

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := t.base.RoundTrip(req)

		if err == nil && !shouldRetry(resp) {
			return resp, nil
		}

		// Don't retry client errors (4xx) except 429 Too Many Requests.
		if err == nil && resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
			return resp, nil
		}

		// Out of attempts: hand a final 429/5xx response to the caller so it
		// is mapped like any other response.
		if err == nil && attempt == maxRetries-1 {
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			resp.Body.Close()
		}

		if attempt == maxRetries-1 {
			break
		}

		time.Sleep(backoff)
		backoff *= 2
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, http.ErrHandlerTimeout
}

// shouldRetry determines if an HTTP response indicates a transient failure.
func shouldRetry(resp *http.Response) bool {
	if resp == nil {
		return true
	}
	return resp.StatusCode == 429 || resp.StatusCode >= 500
}
