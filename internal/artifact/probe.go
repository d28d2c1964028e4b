// Package artifact checks and downloads dump artifacts over HTTP.
package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
)

// Probe defines the HTTP operations performed on a dump URL.
type Probe interface {
	// Exists reports whether the URL answers a HEAD request with 200 OK.
	// Transport failures are returned as errors.
	Exists(ctx context.Context, url string) (bool, error)

	// Fetch opens the body of the URL. The caller must close it.
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPProbe implements Probe with a plain HTTP client.
type HTTPProbe struct {
	client *http.Client
	head   *http.Client // same transport, never follows redirects
}

// NewHTTPProbe creates a probe. A nil client selects a pooled cleanhttp client
// without an overall timeout, large dumps can take a long time to stream.
func NewHTTPProbe(client *http.Client) *HTTPProbe {
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}

	head := *client
	head.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &HTTPProbe{client: client, head: &head}
}

// Exists implements Probe.Exists. A redirect is answered as is, so a 302 to a
// landing page does not count as an available artifact.
func (p *HTTPProbe) Exists(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build HEAD request: %w", err)
	}

	resp, err := p.head.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to probe artifact: %w", err)
	}
	_ = resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

// Fetch implements Probe.Fetch.
func (p *HTTPProbe) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build GET request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artifact: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch artifact: unexpected status %s", resp.Status)
	}

	return resp.Body, nil
}
