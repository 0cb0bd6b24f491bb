package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kanpan0/kanpan/internal/log"
	"github.com/kanpan0/kanpan/internal/sse"
	"github.com/kanpan0/kanpan/internal/workflow"
)

// maxRequestBody caps inbound JSON bodies.
const maxRequestBody = 64 * 1024

// ReportRunner is the workflow surface the report endpoint drives.
// *workflow.Orchestrator satisfies it; tests substitute a stub.
type ReportRunner interface {
	RunByName(ctx context.Context, req workflow.Request, sink workflow.Sink) (string, error)
	RunByCode(ctx context.Context, req workflow.CodeRequest, sink workflow.Sink) (string, error)
}

// reportRequest is the inbound body for POST /api/v1/report. Either
// subjectName (resolved via search) or stockCode (direct) selects the entry
// point; stockCode wins when both are present.
type reportRequest struct {
	SubjectName string `json:"subjectName"`
	StockCode   string `json:"stockCode"`
	ReportDate  string `json:"reportDate"`
	ReportType  string `json:"reportType"`
	Model       string `json:"model"`
}

type reportHandler struct {
	runner ReportRunner
	logger log.Logger
}

// generate streams the research-report workflow for one request. Once the
// SSE stream opens the HTTP status is fixed at 200; terminal failures reach
// the client as a workflow-error event on the stream.
func (h *reportHandler) generate(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}
	if req.SubjectName == "" && req.StockCode == "" {
		writeError(w, http.StatusBadRequest, "missing_subject", "subjectName or stockCode is required")
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}
	sink := newSSESink(r.Context(), writer, h.logger)

	if req.StockCode != "" {
		_, err = h.runner.RunByCode(r.Context(), workflow.CodeRequest{
			StockCode:  req.StockCode,
			ReportDate: req.ReportDate,
			ReportType: req.ReportType,
			Model:      req.Model,
		}, sink)
	} else {
		_, err = h.runner.RunByName(r.Context(), workflow.Request{
			SubjectName: req.SubjectName,
			ReportDate:  req.ReportDate,
			ReportType:  req.ReportType,
			Model:       req.Model,
		}, sink)
	}
	if err != nil {
		// Already on the stream as a workflow-error event.
		h.logger.Warn("report request failed",
			"subject", req.SubjectName, "code", req.StockCode, "error", err)
	}
}
