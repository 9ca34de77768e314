package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxDocumentSize bounds a single fetched document.
const MaxDocumentSize = 8 << 20

// HTTP fetches documents relative to a base URL.
type HTTP struct {
	base   *url.URL
	client *http.Client
	logger *slog.Logger
}

// NewHTTP creates a fetcher for documents under baseURL, e.g.
// "https://example.org/ordo/1962/". A zero timeout means 15 seconds.
func NewHTTP(baseURL string, timeout time.Duration, logger *slog.Logger) (*HTTP, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTP{
		base:   u,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

// Fetch downloads one document. Anything but 200 OK is an error.
func (h *HTTP) Fetch(ctx context.Context, name string) ([]byte, error) {
	p, err := cleanPath(name)
	if err != nil {
		return nil, err
	}
	target := h.base.ResolveReference(&url.URL{Path: p})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, application/yaml, text/yaml, */*")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", p, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", p, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	if len(body) > MaxDocumentSize {
		return nil, fmt.Errorf("fetch %s: document larger than %d bytes", p, MaxDocumentSize)
	}

	h.logger.Debug("document fetched",
		slog.String("host", target.Host),
		slog.String("path", p),
		slog.Int("bytes", len(body)),
		slog.Duration("took", time.Since(start)),
	)
	return body, nil
}
