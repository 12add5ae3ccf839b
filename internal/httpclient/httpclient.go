// Package httpclient holds the process-wide HTTP client unnix uses
// for every Hydra and binary-cache request: a single
// retryablehttp.Client instance, matching the spec's "the HTTP client
// is a process-wide singleton" requirement.
package httpclient

import (
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

var client = newClient()

func newClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	// Hand the last response back once retries run out so callers can
	// act on its status code.
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	// Silence retryablehttp's own logging; unnix reports failures
	// through its own structured errors instead.
	c.Logger = nil
	return c
}

// Do issues req (transport-level failures and 5xx responses are
// retried up to three times); the caller still decides how to treat
// the final status code (404-then-next-cache, etc.).
func Do(req *http.Request) (*http.Response, error) {
	rreq, err := retryablehttp.FromRequest(req)
	if err != nil {
		return nil, err
	}
	return client.Do(rreq)
}

// Underlying exposes the singleton's *http.Client so tests can point
// it at an httptest server (e.g. swap in srv.Client() for a TLS test
// server's trusted cert pool) without duplicating retry/backoff setup.
func Underlying() *http.Client {
	return client.HTTPClient
}
