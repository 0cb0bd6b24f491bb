// Package retrieve fetches a web page and extracts its readable text.
//
// The chat layer exposes this as the content-retrieval tool; the report
// workflow does not call it directly (supplementary context arrives through
// search results instead).
package retrieve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/kanpan0/kanpan/internal/config"
	"github.com/kanpan0/kanpan/internal/log"
	"github.com/kanpan0/kanpan/internal/security"
)

// Article is the readable portion of a fetched page.
type Article struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"` // plain text, not HTML
}

// Client fetches pages with a bounded body size and extracts article text.
// Targets are vetted by a security.URLGuard; private networks and metadata
// endpoints are refused.
type Client struct {
	httpc    *http.Client
	guard    *security.URLGuard
	maxBytes int64
	logger   log.Logger
}

// NewClient creates a retrieval client from configuration.
func NewClient(cfg config.RetrieverConfig, logger log.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	guard := security.NewURLGuard()
	if cfg.AllowLoopback {
		guard.AllowLoopback()
	}
	return &Client{
		httpc:    guard.Client(timeout),
		guard:    guard,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Fetch downloads rawURL and returns its readable text.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Article, error) {
	if err := c.guard.CheckURL(rawURL); err != nil {
		c.logger.Warn("fetch target rejected", "url", rawURL, "error", err)
		return nil, err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	// Bound the body read to avoid resource exhaustion on hostile pages.
	limited := io.LimitReader(resp.Body, c.maxBytes)
	article, err := readability.FromReader(limited, u)
	if err != nil {
		return nil, fmt.Errorf("extract article from %s: %w", rawURL, err)
	}

	text := strings.TrimSpace(article.TextContent)
	c.logger.Debug("retrieved page", "url", rawURL, "title", article.Title, "chars", len(text))

	return &Article{
		URL:     rawURL,
		Title:   article.Title,
		Content: text,
	}, nil
}
