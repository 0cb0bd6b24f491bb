// Package resolver turns a free-text company name into an exchange-qualified
// stock identifier by searching the web and pattern-matching the results.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kanpan0/kanpan/internal/log"
	"github.com/kanpan0/kanpan/internal/search"
)

// ErrNotFound indicates no stock identifier could be extracted from the
// search results. Terminal for the request: the workflow does not retry.
var ErrNotFound = errors.New("stock identifier not found")

// Market is a listing venue.
type Market string

// Supported listing venues.
const (
	MarketSH Market = "SH" // Shanghai Stock Exchange
	MarketSZ Market = "SZ" // Shenzhen Stock Exchange
	MarketBJ Market = "BJ" // Beijing Stock Exchange
	MarketHK Market = "HK" // Hong Kong Stock Exchange
)

// Identifier is a resolved exchange-qualified ticker.
// Immutable after creation.
type Identifier struct {
	Ticker string // digits only, e.g. "600519"
	Market Market
}

// String returns the exchange-qualified form, e.g. "600519.SH".
func (id Identifier) String() string {
	return id.Ticker + "." + string(id.Market)
}

// qualifiedPatterns are tried in fixed priority order; first match wins.
var qualifiedPatterns = []struct {
	market Market
	re     *regexp.Regexp
}{
	{MarketSH, regexp.MustCompile(`(?i)([0-9]{6})\.SH`)},
	{MarketSZ, regexp.MustCompile(`(?i)([0-9]{6})\.SZ`)},
	{MarketBJ, regexp.MustCompile(`(?i)([894][0-9]{5})\.BJ`)},
	{MarketHK, regexp.MustCompile(`(?i)([0-9]{5})\.HK`)},
}

var bareCodePattern = regexp.MustCompile(`[0-9]{6}`)

// Resolver resolves company names through a search collaborator.
type Resolver struct {
	searcher search.Searcher
	logger   log.Logger
}

// New creates a resolver.
func New(searcher search.Searcher, logger log.Logger) *Resolver {
	return &Resolver{searcher: searcher, logger: logger}
}

// Resolve looks up the identifier for a free-text company name.
// Resolution happens once per request; failure returns ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, subjectName string) (Identifier, error) {
	query := fmt.Sprintf("%s 股票代码 交易所", subjectName)
	resp, err := r.searcher.Search(ctx, query, 5, search.DepthAdvanced)
	if err != nil {
		return Identifier{}, fmt.Errorf("search for %q: %w", subjectName, err)
	}

	var sb strings.Builder
	for _, result := range resp.Results {
		sb.WriteString(result.Title)
		sb.WriteString(" ")
		sb.WriteString(result.Content)
		sb.WriteString(" ")
	}
	blob := sb.String()

	if id, ok := matchQualified(blob); ok {
		r.logger.Debug("resolved via qualified pattern", "subject", subjectName, "identifier", id.String())
		return id, nil
	}

	if id, ok := matchBareCode(blob); ok {
		r.logger.Debug("resolved via bare-code heuristic", "subject", subjectName, "identifier", id.String())
		return id, nil
	}

	r.logger.Info("no identifier found", "subject", subjectName)
	return Identifier{}, fmt.Errorf("%w: %s", ErrNotFound, subjectName)
}

func matchQualified(blob string) (Identifier, bool) {
	for _, p := range qualifiedPatterns {
		if m := p.re.FindStringSubmatch(blob); m != nil {
			return Identifier{Ticker: m[1], Market: p.market}, true
		}
	}
	return Identifier{}, false
}

// matchBareCode extracts the first bare 6-digit run and infers the exchange
// from its leading digit. Heuristic: it can misattribute the venue and is
// an accepted approximation, not a guarantee.
//
// Leading digit 3 maps to Shenzhen: 3xxxxx codes are the ChiNext board,
// which lists there.
func matchBareCode(blob string) (Identifier, bool) {
	code := bareCodePattern.FindString(blob)
	if code == "" {
		return Identifier{}, false
	}

	var market Market
	switch code[0] {
	case '6':
		market = MarketSH
	case '0', '3':
		market = MarketSZ
	case '8', '4', '9':
		market = MarketBJ
	default:
		market = MarketSZ
	}
	return Identifier{Ticker: code, Market: market}, true
}
