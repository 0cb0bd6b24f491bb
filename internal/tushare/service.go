package tushare

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Cache and retry policy per endpoint family. These mirror how often the
// underlying data actually changes: listings daily, quotes hourly.
const (
	basicInfoCacheTTL = 24 * time.Hour
	dailyCacheTTL     = time.Hour
	defaultRetries    = 3
)

// Financials bundles the four financial statement families for one period,
// each most-recent-first as the provider returns them.
type Financials struct {
	Income     []Record
	Balance    []Record
	Cashflow   []Record
	Indicators []Record
}

// Empty reports whether no statement family has any data.
func (f *Financials) Empty() bool {
	return len(f.Income) == 0 && len(f.Balance) == 0 &&
		len(f.Cashflow) == 0 && len(f.Indicators) == 0
}

// StockBasic fetches listing metadata for one exchange-qualified ticker.
func (c *Client) StockBasic(ctx context.Context, tsCode string) ([]Record, error) {
	return c.Call(ctx, "stock_basic", map[string]string{"ts_code": tsCode}, CallOptions{
		CacheTTL: basicInfoCacheTTL,
		Retries:  defaultRetries,
	})
}

// FetchFinancials fetches the four statement families for (ticker, period)
// concurrently and joined before returning.
// The first failing sub-fetch cancels the rest via the group context.
func (c *Client) FetchFinancials(ctx context.Context, tsCode, period string) (*Financials, error) {
	params := map[string]string{"ts_code": tsCode, "period": period}
	opts := CallOptions{Retries: defaultRetries}

	var fin Financials
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		records, err := c.Call(gctx, "income", params, opts)
		fin.Income = records
		return err
	})
	g.Go(func() error {
		records, err := c.Call(gctx, "balancesheet", params, opts)
		fin.Balance = records
		return err
	})
	g.Go(func() error {
		records, err := c.Call(gctx, "cashflow", params, opts)
		fin.Cashflow = records
		return err
	})
	g.Go(func() error {
		records, err := c.Call(gctx, "fina_indicator", params, opts)
		fin.Indicators = records
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &fin, nil
}

// Daily fetches the daily market bars for [startDate, endDate] (YYYYMMDD),
// sorted ascending by trade date regardless of provider ordering.
func (c *Client) Daily(ctx context.Context, tsCode, startDate, endDate string) ([]Record, error) {
	records, err := c.Call(ctx, "daily", map[string]string{
		"ts_code":    tsCode,
		"start_date": startDate,
		"end_date":   endDate,
	}, CallOptions{
		CacheTTL: dailyCacheTTL,
		Retries:  defaultRetries,
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].String("trade_date") < records[j].String("trade_date")
	})
	return records, nil
}
