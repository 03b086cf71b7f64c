package app

import (
	"net"
	"net/http"
	"time"
)

// newHTTPClient returns the HTTP client shared by the provider and wiki
// backends. Deadlines come from per-request contexts, so the client itself
// sets none; the transport keeps short dial and handshake timeouts to avoid
// hangs on unreachable hosts.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{Transport: transport}
}
