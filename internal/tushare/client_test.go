package tushare

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanpan0/kanpan/internal/config"
	"github.com/kanpan0/kanpan/internal/log"
)

// newTestClient wires a client against a stub provider endpoint.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(config.TushareConfig{
		BaseURL:   srv.URL,
		Token:     "test-token",
		TimeoutMs: 5000,
	}, log.NewNop())
	return srv, client
}

// okResponse builds a provider response with the given fields and rows.
func okResponse(fields []string, items [][]any) map[string]any {
	return map[string]any{
		"code": 0,
		"msg":  "",
		"data": map[string]any{"fields": fields, "items": items},
	}
}

func TestCall_NormalizesRows(t *testing.T) {
	_, client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req apiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "stock_basic", req.APIName)
		assert.Equal(t, "test-token", req.Token)
		assert.Equal(t, "600519.SH", req.Params["ts_code"])

		_ = json.NewEncoder(w).Encode(okResponse(
			[]string{"ts_code", "name", "industry"},
			[][]any{{"600519.SH", "贵州茅台", "白酒"}},
		))
	})

	records, err := client.Call(context.Background(), "stock_basic",
		map[string]string{"ts_code": "600519.SH"}, CallOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "贵州茅台", records[0].String("name"))
	assert.Equal(t, "白酒", records[0].String("industry"))
}

func TestCall_NonZeroCodeIsProviderError(t *testing.T) {
	_, client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 40001, "msg": "token invalid"})
	})

	_, err := client.Call(context.Background(), "income", nil, CallOptions{})
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "income", perr.Endpoint)
	assert.Contains(t, perr.Message, "token invalid")
}

func TestCall_CacheHitSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	_, client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(okResponse([]string{"close"}, [][]any{{100.0}}))
	})

	opts := CallOptions{CacheTTL: time.Minute}
	params := map[string]string{"ts_code": "600519.SH"}

	first, err := client.Call(context.Background(), "daily", params, opts)
	require.NoError(t, err)
	second, err := client.Call(context.Background(), "daily", params, opts)
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load(), "second call within TTL must not hit the network")
	assert.Equal(t, first, second)

	// Different params bypass the cached entry.
	_, err = client.Call(context.Background(), "daily", map[string]string{"ts_code": "000001.SZ"}, opts)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCall_NoCacheWithoutTTL(t *testing.T) {
	var calls atomic.Int32
	_, client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(okResponse([]string{"close"}, [][]any{{100.0}}))
	})

	for range 3 {
		_, err := client.Call(context.Background(), "income", nil, CallOptions{})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestCall_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	_, client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(okResponse([]string{"close"}, [][]any{{1.0}}))
	})

	records, err := client.Call(context.Background(), "daily", nil, CallOptions{Retries: 3})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCall_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	_, client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Call(context.Background(), "daily", nil, CallOptions{Retries: 2})
	require.Error(t, err)

	var perr *ProviderError
	assert.True(t, errors.As(err, &perr))
	assert.Equal(t, int32(3), calls.Load(), "1 initial attempt + 2 retries")
}

func TestCall_EmptyDataIsEmptySlice(t *testing.T) {
	_, client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "msg": ""})
	})

	records, err := client.Call(context.Background(), "income", nil, CallOptions{})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestRecord_Accessors(t *testing.T) {
	rec := Record{"close": 1850.5, "name": "贵州茅台", "eps": nil}

	f, ok := rec.Float("close")
	assert.True(t, ok)
	assert.Equal(t, 1850.5, f)

	_, ok = rec.Float("eps")
	assert.False(t, ok, "null cell must not report a value")

	_, ok = rec.Float("missing")
	assert.False(t, ok)

	assert.Equal(t, "贵州茅台", rec.String("name"))
	assert.Equal(t, "", rec.String("missing"))
}

func TestCacheKey_Deterministic(t *testing.T) {
	a := cacheKey("daily", map[string]string{"ts_code": "600519.SH", "start_date": "20250101"})
	b := cacheKey("daily", map[string]string{"start_date": "20250101", "ts_code": "600519.SH"})
	assert.Equal(t, a, b, "key must not depend on map iteration order")

	c := cacheKey("income", map[string]string{"ts_code": "600519.SH", "start_date": "20250101"})
	assert.NotEqual(t, a, c)
}
