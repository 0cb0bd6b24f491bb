package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/kanpan0/kanpan/internal/intent"
	"github.com/kanpan0/kanpan/internal/llm"
	"github.com/kanpan0/kanpan/internal/log"
	"github.com/kanpan0/kanpan/internal/retrieve"
	"github.com/kanpan0/kanpan/internal/sse"
	"github.com/kanpan0/kanpan/internal/workflow"
)

// chatSystemPrompt frames the conversational path. Report requests never
// reach the model; the intent classifier diverts them first.
const chatSystemPrompt = `你是一位专业的金融市场助手，熟悉A股、港股市场和公司财务分析。
用中文回答用户的问题，保持准确、客观，不提供确定性的投资承诺。
如果用户想要完整的个股研究报告，提示他们直接发送"生成XX的研报"。`

// ChatStreamer is the streaming generation surface of the chat endpoint.
// *llm.Client satisfies it.
type ChatStreamer interface {
	StreamText(ctx context.Context, model, system, prompt string, fn llm.StreamFunc) (string, error)
}

// ChatRetriever fetches a web page as readable text. *retrieve.Client
// satisfies it. Optional; without it URL-bearing messages go to the model
// as-is.
type ChatRetriever interface {
	Fetch(ctx context.Context, rawURL string) (*retrieve.Article, error)
}

// urlPattern finds the first http(s) link in a chat message.
var urlPattern = regexp.MustCompile(`https?://[^\s，。、"'<>]+`)

// maxArticleRunes caps how much fetched page text is inlined into the prompt.
const maxArticleRunes = 8000

// chatRequest is the inbound body for POST /api/v1/chat.
type chatRequest struct {
	Message string `json:"message"`
	Model   string `json:"model"`
}

type chatHandler struct {
	streamer  ChatStreamer
	runner    ReportRunner
	retriever ChatRetriever
	logger    log.Logger
}

// send classifies the message and streams either a research-report workflow
// or a conversational reply over SSE.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "message is required")
		return
	}

	decision := intent.Classify(req.Message)

	writer, err := sse.NewWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}
	ctx := r.Context()

	if decision.Kind == intent.Report {
		sink := newSSESink(ctx, writer, h.logger)
		if _, err := h.runner.RunByName(ctx, workflow.Request{
			SubjectName: decision.Subject,
			Model:       req.Model,
		}, sink); err != nil {
			h.logger.Warn("report request via chat failed",
				"subject", decision.Subject, "error", err)
		}
		return
	}

	prompt := h.enrichWithPage(ctx, req.Message)

	_, err = h.streamer.StreamText(ctx, req.Model, chatSystemPrompt, prompt,
		func(ctx context.Context, chunk string) error {
			return writer.WriteChunk(ctx, chunk)
		})
	if err != nil {
		h.logger.Warn("chat generation failed", "error", err)
		if werr := writer.WriteError(ctx, "generation_failed", "生成回复时出现问题，请稍后再试"); werr != nil {
			h.logger.Debug("error event write failed", "error", werr)
		}
		return
	}
	if err := writer.WriteDone(ctx); err != nil {
		h.logger.Debug("done event write failed", "error", err)
	}
}

// enrichWithPage appends the readable text of the first URL in the message,
// so the model can answer questions about a linked article. Retrieval
// failures fall back to the raw message.
func (h *chatHandler) enrichWithPage(ctx context.Context, message string) string {
	if h.retriever == nil {
		return message
	}
	link := urlPattern.FindString(message)
	if link == "" {
		return message
	}

	article, err := h.retriever.Fetch(ctx, link)
	if err != nil {
		h.logger.Debug("page retrieval failed", "url", link, "error", err)
		return message
	}

	content := article.Content
	if runes := []rune(content); len(runes) > maxArticleRunes {
		content = string(runes[:maxArticleRunes])
	}
	return fmt.Sprintf("%s\n\n参考网页内容（%s）:\n标题: %s\n%s",
		message, article.URL, article.Title, content)
}
