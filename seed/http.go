package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/brettbedarf/vkernel"
)

type HTTPMethod = string

const (
	HTTPMethodGet  HTTPMethod = "GET"
	HTTPMethodPost HTTPMethod = "POST"
)

// HTTPClient is the subset of *http.Client the source needs
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource contains http-specific source fields
type HTTPSource struct {
	URL     string            `json:"url"`
	Method  *HTTPMethod       `json:"method,omitempty"` // Default is GET
	Headers map[string]string `json:"headers,omitempty"`
}

// HTTPProvider builds [HTTPAdapter]s sharing one client
type HTTPProvider struct {
	client HTTPClient
}

func RegisterHTTP(r *Registry, client HTTPClient) {
	r.Register(HTTPSourceType, &HTTPProvider{client: client})
}

func (p *HTTPProvider) NewSource(raw []byte) (vkernel.ContentSource, error) {
	var src HTTPSource
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, err
	}
	u, err := validateURL(src.URL)
	if err != nil {
		return nil, err
	}
	src.URL = u
	return &HTTPAdapter{client: p.client, source: &src}, nil
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("http source missing url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url %q: missing host", raw)
	}
	if u.User != nil {
		return "", fmt.Errorf("invalid url %q: user info not allowed", raw)
	}
	return u.String(), nil
}

// HTTPAdapter implements [vkernel.ContentSource] for HTTP sources
type HTTPAdapter struct {
	client HTTPClient
	source *HTTPSource
}

func (h *HTTPAdapter) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, h.getMethod(), h.source.URL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range h.source.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: unexpected status %s", req.Method, h.source.URL, resp.Status)
	}
	return resp.Body, nil
}

func (h *HTTPAdapter) getMethod() HTTPMethod {
	if h.source.Method != nil {
		return *h.source.Method
	}
	return HTTPMethodGet
}
