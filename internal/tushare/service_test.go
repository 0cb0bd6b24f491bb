package tushare

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchFinancials_FanOutJoinsAllFour(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}

	_, client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req apiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		mu.Lock()
		seen[req.APIName]++
		mu.Unlock()

		assert.Equal(t, "600519.SH", req.Params["ts_code"])
		assert.Equal(t, "20250630", req.Params["period"])

		_ = json.NewEncoder(w).Encode(okResponse(
			[]string{"end_date", "total_revenue"},
			[][]any{{"20250630", 1.0}},
		))
	})

	fin, err := client.FetchFinancials(context.Background(), "600519.SH", "20250630")
	require.NoError(t, err)

	for _, endpoint := range []string{"income", "balancesheet", "cashflow", "fina_indicator"} {
		assert.Equal(t, 1, seen[endpoint], "endpoint %s", endpoint)
	}
	assert.Len(t, fin.Income, 1)
	assert.Len(t, fin.Balance, 1)
	assert.Len(t, fin.Cashflow, 1)
	assert.Len(t, fin.Indicators, 1)
	assert.False(t, fin.Empty())
}

func TestFetchFinancials_OneFailureFailsAll(t *testing.T) {
	_, client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req apiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.APIName == "cashflow" {
			_ = json.NewEncoder(w).Encode(map[string]any{"code": 500, "msg": "internal"})
			return
		}
		_ = json.NewEncoder(w).Encode(okResponse([]string{"end_date"}, [][]any{{"20250630"}}))
	})

	_, err := client.FetchFinancials(context.Background(), "600519.SH", "20250630")
	require.Error(t, err)
}

func TestFinancials_Empty(t *testing.T) {
	var fin Financials
	assert.True(t, fin.Empty())

	fin.Indicators = []Record{{"eps": 1.0}}
	assert.False(t, fin.Empty())
}

func TestDaily_SortsAscendingByTradeDate(t *testing.T) {
	_, client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		// The provider returns bars most-recent-first.
		_ = json.NewEncoder(w).Encode(okResponse(
			[]string{"trade_date", "close"},
			[][]any{
				{"20250630", 1850.0},
				{"20250627", 1830.0},
				{"20250626", 1810.0},
			},
		))
	})

	records, err := client.Daily(context.Background(), "600519.SH", "20250401", "20250630")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "20250626", records[0].String("trade_date"))
	assert.Equal(t, "20250630", records[2].String("trade_date"))
}
