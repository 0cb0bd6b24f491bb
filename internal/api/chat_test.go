package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanpan0/kanpan/internal/resolver"
	"github.com/kanpan0/kanpan/internal/retrieve"
	"github.com/kanpan0/kanpan/internal/testutil"
)

func TestChatStreamsChunks(t *testing.T) {
	ts := newTestServer(t, stubResolver{}, &stubProvider{}, stubGenerator{},
		stubStreamer{chunks: []string{"你好", "，我是", "助手"}})

	resp := postJSON(t, ts.URL+"/api/v1/chat", `{"message":"今天A股行情怎么样"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := testutil.ParseSSEEvents(t, readBody(t, resp))
	chunks := testutil.FindAllEvents(events, "chunk")
	require.Len(t, chunks, 3)

	var first struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal([]byte(chunks[0].Data), &first))
	assert.Equal(t, "你好", first.Text)

	done := testutil.FindEvent(events, "done")
	require.NotNil(t, done)
}

func TestChatGenerationFailure(t *testing.T) {
	ts := newTestServer(t, stubResolver{}, &stubProvider{}, stubGenerator{},
		stubStreamer{err: errors.New("model unavailable")})

	resp := postJSON(t, ts.URL+"/api/v1/chat", `{"message":"今天A股行情怎么样"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := testutil.ParseSSEEvents(t, readBody(t, resp))
	errEvent := testutil.FindEvent(events, "error")
	require.NotNil(t, errEvent)
	assert.Contains(t, errEvent.Data, "generation_failed")
	assert.Nil(t, testutil.FindEvent(events, "done"))
}

func TestChatRoutesReportIntentToWorkflow(t *testing.T) {
	ts := newTestServer(t,
		stubResolver{id: resolver.Identifier{Ticker: "600519", Market: resolver.MarketSH}},
		&stubProvider{},
		stubGenerator{text: "# 研报"},
		stubStreamer{chunks: []string{"should not be used"}},
	)

	resp := postJSON(t, ts.URL+"/api/v1/chat", `{"message":"生成贵州茅台的研报"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := testutil.ParseSSEEvents(t, readBody(t, resp))
	types := eventTypes(t, events)
	assert.Contains(t, types, "workflow-start")
	assert.Contains(t, types, "workflow-complete")
	assert.Nil(t, testutil.FindEvent(events, "chunk"))
}

type stubRetriever struct {
	article *retrieve.Article
	err     error
	gotURL  string
}

func (s *stubRetriever) Fetch(_ context.Context, rawURL string) (*retrieve.Article, error) {
	s.gotURL = rawURL
	if s.err != nil {
		return nil, s.err
	}
	return s.article, nil
}

func TestChatEnrichWithPage(t *testing.T) {
	t.Parallel()

	ret := &stubRetriever{article: &retrieve.Article{
		URL:     "https://example.com/news/1",
		Title:   "半年报点评",
		Content: "营收同比增长两成。",
	}}
	h := &chatHandler{retriever: ret, logger: testutil.DiscardLogger()}

	prompt := h.enrichWithPage(context.Background(), "帮我总结 https://example.com/news/1 这篇文章")
	assert.Equal(t, "https://example.com/news/1", ret.gotURL)
	assert.Contains(t, prompt, "参考网页内容")
	assert.Contains(t, prompt, "半年报点评")
	assert.Contains(t, prompt, "营收同比增长两成。")

	// No URL in the message: passthrough, no fetch.
	ret.gotURL = ""
	assert.Equal(t, "今天行情如何", h.enrichWithPage(context.Background(), "今天行情如何"))
	assert.Empty(t, ret.gotURL)
}

func TestChatEnrichRetrievalFailure(t *testing.T) {
	t.Parallel()

	h := &chatHandler{
		retriever: &stubRetriever{err: errors.New("connection refused")},
		logger:    testutil.DiscardLogger(),
	}
	msg := "看看 https://example.com/down 写了什么"
	assert.Equal(t, msg, h.enrichWithPage(context.Background(), msg))

	// No retriever configured: passthrough.
	bare := &chatHandler{logger: testutil.DiscardLogger()}
	assert.Equal(t, msg, bare.enrichWithPage(context.Background(), msg))
}

func TestChatValidation(t *testing.T) {
	ts := newTestServer(t, stubResolver{}, &stubProvider{}, stubGenerator{}, stubStreamer{})

	resp := postJSON(t, ts.URL+"/api/v1/chat", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/api/v1/chat", `{broken`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
