// Package search provides a web search client backed by a SearXNG instance.
//
// The report workflow uses it to look up stock identifiers and background
// material; the chat layer exposes it as a tool. Results carry only the
// fields downstream consumers need (title, content, url).
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kanpan0/kanpan/internal/config"
	"github.com/kanpan0/kanpan/internal/log"
)

// Depth controls how thorough a search is.
type Depth string

const (
	// DepthBasic returns the first page of results.
	DepthBasic Depth = "basic"
	// DepthAdvanced also queries the news category for fresher material.
	DepthAdvanced Depth = "advanced"
)

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Response is the outcome of one search call.
type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

// Searcher is the consumer-side interface; the resolver and workflow depend
// on this rather than the concrete client.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int, depth Depth) (*Response, error)
}

// Client queries a SearXNG instance over its JSON API.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  log.Logger
}

// NewClient creates a search client from configuration.
func NewClient(cfg config.SearXNGConfig, logger log.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

var _ Searcher = (*Client)(nil)

// searxngResponse mirrors the SearXNG JSON API response.
type searxngResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		URL     string `json:"url"`
	} `json:"results"`
}

// Search performs a web search and returns at most maxResults hits.
func (c *Client) Search(ctx context.Context, query string, maxResults int, depth Depth) (*Response, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid searxng base URL: %w", err)
	}
	u.Path = "/search"

	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	if depth == DepthAdvanced {
		q.Set("categories", "general,news")
	} else {
		q.Set("categories", "general")
	}
	q.Set("pageno", strconv.Itoa(1))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng returned status %d", resp.StatusCode)
	}

	var raw searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]Result, 0, min(maxResults, len(raw.Results)))
	for _, r := range raw.Results {
		if len(results) == maxResults {
			break
		}
		results = append(results, Result{Title: r.Title, Content: r.Content, URL: r.URL})
	}

	c.logger.Debug("search completed", "query", query, "results", len(results))
	return &Response{Query: raw.Query, Results: results}, nil
}
