package llm

import (
	"net"
	"net/http"
	"time"
)

// Connection pool settings sized for a handful of long-lived API hosts
const (
	defaultConnTimeout         = 30 * time.Second
	defaultMaxIdleConns        = 20
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 20
	defaultIdleConnTimeout     = 120 * time.Second
)

// NewPooledTransport creates an http.Transport with connection pooling for
// completion backends.
func NewPooledTransport(connTimeout time.Duration) *http.Transport {
	if connTimeout <= 0 {
		connTimeout = defaultConnTimeout
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		MaxConnsPerHost:     defaultMaxConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}
}

// NewHTTPClient creates the client shared by every backend. requestTimeout
// bounds a whole request including the response body; zero means no bound.
func NewHTTPClient(requestTimeout time.Duration) *http.Client {
	return &http.Client{
		Transport: NewPooledTransport(defaultConnTimeout),
		Timeout:   requestTimeout,
	}
}
