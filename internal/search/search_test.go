package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanpan0/kanpan/internal/config"
	"github.com/kanpan0/kanpan/internal/log"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(config.SearXNGConfig{BaseURL: srv.URL, TimeoutMs: 5000}, log.NewNop())
	return srv, client
}

func TestSearch_ReturnsResults(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "贵州茅台 股票代码 交易所", r.URL.Query().Get("q"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"query": "贵州茅台 股票代码 交易所",
			"results": []map[string]string{
				{"title": "贵州茅台(600519.SH)", "content": "贵州茅台股票代码600519.SH,上海证券交易所", "url": "https://example.com/1"},
				{"title": "another", "content": "more", "url": "https://example.com/2"},
			},
		})
	})

	resp, err := client.Search(context.Background(), "贵州茅台 股票代码 交易所", 5, DepthAdvanced)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "贵州茅台(600519.SH)", resp.Results[0].Title)
	assert.Equal(t, "https://example.com/1", resp.Results[0].URL)
}

func TestSearch_TruncatesToMaxResults(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		results := make([]map[string]string, 10)
		for i := range results {
			results[i] = map[string]string{"title": "t", "content": "c", "url": "u"}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	})

	resp, err := client.Search(context.Background(), "query", 3, DepthBasic)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
}

func TestSearch_AdvancedDepthIncludesNews(t *testing.T) {
	var gotCategories string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotCategories = r.URL.Query().Get("categories")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	})

	_, err := client.Search(context.Background(), "q", 5, DepthAdvanced)
	require.NoError(t, err)
	assert.Equal(t, "general,news", gotCategories)
}

func TestSearch_NonOKStatus(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Search(context.Background(), "q", 5, DepthBasic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSearch_ContextCanceled(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, "q", 5, DepthBasic)
	require.Error(t, err)
}
