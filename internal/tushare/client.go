// Package tushare provides a client for the Tushare Pro financial data API.
//
// The client wraps every call behind an in-memory TTL cache and a bounded
// retry policy. Responses arrive as a column-name list plus row matrix and
// are normalized into one map per record before being returned.
package tushare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kanpan0/kanpan/internal/config"
	"github.com/kanpan0/kanpan/internal/log"
)

// Record is one normalized provider row, keyed by column name.
type Record map[string]any

// Float returns the named field as float64. Missing or non-numeric fields
// return (0, false); provider rows routinely have null cells.
func (r Record) Float(key string) (float64, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// String returns the named field as a string, or "" when absent.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// ProviderError reports an upstream data-fetch failure: either a transport
// error or a non-zero status code in the provider's own response.
type ProviderError struct {
	Endpoint string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("tushare %s: %s", e.Endpoint, e.Message)
}

// CallOptions tunes caching and retry for one call.
type CallOptions struct {
	// CacheTTL enables the in-memory cache when positive; a hit younger than
	// the TTL is returned without a network call.
	CacheTTL time.Duration
	// Retries is the number of re-attempts after the first failure.
	// No backoff between attempts; a single-shot report request prefers
	// low latency over politeness.
	Retries int
}

// apiRequest is the wire request accepted by the provider.
type apiRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

// apiResponse is the provider's wire response. A non-zero Code is a hard error.
type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		Fields []string `json:"fields"`
		Items  [][]any  `json:"items"`
	} `json:"data"`
}

type cacheEntry struct {
	records []Record
	stored  time.Time
}

// Client calls the Tushare Pro API.
// The cache is safe for concurrent readers and writers from independent
// requests; last-writer-wins on a key collision is fine because values are
// idempotent fetches of the same (endpoint, params) pair.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  log.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewClient creates a provider client from configuration.
func NewClient(cfg config.TushareConfig, logger log.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
		cache:   make(map[string]cacheEntry),
	}
}

// Call invokes one provider endpoint and returns normalized records.
// Retries are a bounded loop, not recursion; attempts are issued back-to-back.
func (c *Client) Call(ctx context.Context, apiName string, params map[string]string, opts CallOptions) ([]Record, error) {
	key := cacheKey(apiName, params)

	if opts.CacheTTL > 0 {
		if records, ok := c.cached(key, opts.CacheTTL); ok {
			c.logger.Debug("cache hit", "endpoint", apiName)
			return records, nil
		}
	}

	var lastErr error
	attempts := opts.Retries + 1
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, &ProviderError{Endpoint: apiName, Message: err.Error()}
		}

		records, err := c.do(ctx, apiName, params)
		if err == nil {
			if opts.CacheTTL > 0 {
				c.store(key, records)
			}
			return records, nil
		}

		lastErr = err
		if attempt < attempts-1 {
			c.logger.Warn("provider call failed, retrying",
				"endpoint", apiName,
				"attempt", attempt+1,
				"remaining", attempts-attempt-1,
				"error", err,
			)
		}
	}

	c.logger.Error("provider call failed", "endpoint", apiName, "error", lastErr)
	return nil, &ProviderError{Endpoint: apiName, Message: lastErr.Error()}
}

// do issues a single provider request.
func (c *Client) do(ctx context.Context, apiName string, params map[string]string) ([]Record, error) {
	body, err := json.Marshal(apiRequest{
		APIName: apiName,
		Token:   c.token,
		Params:  params,
		Fields:  "", // all fields
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if apiResp.Code != 0 {
		return nil, fmt.Errorf("provider error code %d: %s", apiResp.Code, apiResp.Msg)
	}

	return normalize(apiResp), nil
}

// normalize zips the provider's column names with each row into records.
func normalize(resp apiResponse) []Record {
	if resp.Data == nil || len(resp.Data.Items) == 0 {
		return []Record{}
	}

	fields := resp.Data.Fields
	records := make([]Record, 0, len(resp.Data.Items))
	for _, row := range resp.Data.Items {
		rec := make(Record, len(fields))
		for i, field := range fields {
			if i < len(row) {
				rec[field] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records
}

// cacheKey builds a deterministic key for (endpoint, params).
// json.Marshal sorts map keys, so equal params always produce equal keys.
func cacheKey(apiName string, params map[string]string) string {
	serialized, err := json.Marshal(params)
	if err != nil {
		// map[string]string cannot fail to marshal; guard anyway.
		return apiName
	}
	return apiName + ":" + string(serialized)
}

func (c *Client) cached(key string, ttl time.Duration) ([]Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || time.Since(entry.stored) >= ttl {
		return nil, false
	}
	return entry.records, true
}

func (c *Client) store(key string, records []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = cacheEntry{records: records, stored: time.Now()}
}
