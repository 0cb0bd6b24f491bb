// Package report generates long-form investment research reports from an
// assembled dataset, delegating to a text-generation backend with a
// deterministic template fallback.
package report

import "github.com/kanpan0/kanpan/internal/tushare"

// ContextItem is one piece of pre-fetched supplementary material (a search
// hit) carried through from the caller, never re-fetched.
type ContextItem struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// Dataset is the evidence bundle a report is generated from. The workflow
// populates it stage by stage (identity, then financials, then market
// history) and never mutates it once generation begins.
type Dataset struct {
	// Identity is the company listing record (name, industry, area, market,
	// list_date, ...).
	Identity tushare.Record

	// Financials holds the four statement families, most-recent-first.
	Financials *tushare.Financials

	// MarketHistory is the daily bar window, ascending by trade date.
	MarketHistory []tushare.Record

	// Supplementary is carried from the request unchanged.
	Supplementary []ContextItem

	// Model selects the generation backend; empty means the process default.
	Model string
}

// latest returns the most recent record of a family, or an empty record so
// callers can interpolate missing periods without nil checks.
func latest(records []tushare.Record) tushare.Record {
	if len(records) == 0 {
		return tushare.Record{}
	}
	return records[0]
}

// head returns at most n leading records.
func head(records []tushare.Record, n int) []tushare.Record {
	if len(records) <= n {
		return records
	}
	return records[:n]
}

// marketSummary condenses the bar window into the handful of figures the
// prompt and the fallback template need.
type marketSummary struct {
	Count       int
	First       tushare.Record
	Last        tushare.Record
	High        float64
	Low         float64
	AvgVolume   float64
	ChangePct   float64
	HasChange   bool // false when the window is empty or the first close is 0
	HasExtremes bool // false when the window is empty
}

func summarizeMarket(bars []tushare.Record) marketSummary {
	s := marketSummary{Count: len(bars)}
	if len(bars) == 0 {
		s.First = tushare.Record{}
		s.Last = tushare.Record{}
		return s
	}

	s.First = bars[0]
	s.Last = bars[len(bars)-1]

	var volSum float64
	for i, bar := range bars {
		if high, ok := bar.Float("high"); ok && (i == 0 || high > s.High) {
			s.High = high
		}
		if low, ok := bar.Float("low"); ok && (i == 0 || low < s.Low) {
			s.Low = low
		}
		if vol, ok := bar.Float("vol"); ok {
			volSum += vol
		}
	}
	s.AvgVolume = volSum / float64(len(bars))
	s.HasExtremes = true

	firstClose, ok1 := s.First.Float("close")
	lastClose, ok2 := s.Last.Float("close")
	if ok1 && ok2 && firstClose != 0 {
		s.ChangePct = (lastClose - firstClose) / firstClose * 100
		s.HasChange = true
	}
	return s
}
