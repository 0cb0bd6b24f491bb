package resolver

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanpan0/kanpan/internal/log"
	"github.com/kanpan0/kanpan/internal/search"
)

// stubSearcher returns canned results regardless of the query.
type stubSearcher struct {
	results []search.Result
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string, _ int, _ search.Depth) (*search.Response, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return &search.Response{Query: query, Results: s.results}, nil
}

func resolve(t *testing.T, results ...search.Result) (Identifier, error) {
	t.Helper()
	r := New(&stubSearcher{results: results}, log.NewNop())
	return r.Resolve(context.Background(), "测试公司")
}

func TestResolve_QualifiedPatterns(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"shanghai", "贵州茅台的股票代码是600519.SH，在上海证券交易所上市", "600519.SH"},
		{"shenzhen", "平安银行 000001.SZ 深圳证券交易所", "000001.SZ"},
		{"beijing", "某公司 838030.BJ 北京证券交易所", "838030.BJ"},
		{"hongkong", "腾讯控股 00700.HK 港交所", "00700.HK"},
		{"lowercase suffix", "代码 600519.sh 上交所", "600519.SH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := resolve(t, search.Result{Title: "t", Content: tt.content})
			require.NoError(t, err)
			assert.Equal(t, tt.want, id.String())
		})
	}
}

func TestResolve_PriorityOrder(t *testing.T) {
	// SH pattern wins even when a SZ code appears earlier in the blob.
	id, err := resolve(t, search.Result{
		Title:   "对比",
		Content: "000001.SZ 与 600519.SH 的比较",
	})
	require.NoError(t, err)
	assert.Equal(t, "600519.SH", id.String())
}

func TestResolve_BareCodeFallback(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"leading 6 is shanghai", "股票代码为601318，中国平安", "601318.SH"},
		{"leading 0 is shenzhen", "代码000858，五粮液", "000858.SZ"},
		{"leading 3 is shenzhen chinext", "代码300750，宁德时代", "300750.SZ"},
		{"leading 8 is beijing", "代码832000", "832000.BJ"},
		{"leading 4 is beijing", "代码430047", "430047.BJ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := resolve(t, search.Result{Title: "t", Content: tt.content})
			require.NoError(t, err)
			assert.Equal(t, tt.want, id.String())
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	_, err := resolve(t, search.Result{Title: "无关内容", Content: "没有任何代码"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_SearchErrorPropagates(t *testing.T) {
	searchErr := errors.New("searxng unreachable")
	r := New(&stubSearcher{err: searchErr}, log.NewNop())

	_, err := r.Resolve(context.Background(), "贵州茅台")
	require.Error(t, err)
	assert.ErrorIs(t, err, searchErr)
	assert.NotErrorIs(t, err, ErrNotFound, "transport failure is not NotFound")
}

func TestResolve_QueryShape(t *testing.T) {
	s := &stubSearcher{results: []search.Result{{Content: "600519.SH"}}}
	r := New(s, log.NewNop())

	_, err := r.Resolve(context.Background(), "贵州茅台")
	require.NoError(t, err)
	require.Len(t, s.queries, 1)
	assert.Equal(t, "贵州茅台 股票代码 交易所", s.queries[0])
}

func TestIdentifier_ShapeInvariant(t *testing.T) {
	// Any successful resolution yields ^\d{5,6}\.(SH|SZ|BJ|HK)$.
	shape := regexp.MustCompile(`^\d{5,6}\.(SH|SZ|BJ|HK)$`)

	contents := []string{
		"600519.SH", "000001.SZ", "838030.BJ", "00700.HK",
		"代码601318", "代码000858", "代码300750", "代码438030",
	}
	for _, content := range contents {
		id, err := resolve(t, search.Result{Content: content})
		require.NoError(t, err, "content %q", content)
		assert.Regexp(t, shape, id.String())
	}
}
