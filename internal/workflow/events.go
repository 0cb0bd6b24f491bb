// Package workflow orchestrates the research-report pipeline: identifier
// resolution, provider fetches, report generation, and the ordered progress
// event stream the client renders from.
package workflow

import (
	"encoding/json"

	"github.com/kanpan0/kanpan/internal/search"
)

// Event kinds as they appear on the wire.
const (
	KindStart    = "workflow-start"
	KindProgress = "workflow-progress"
	KindDisplay  = "display"
	KindComplete = "workflow-complete"
	KindError    = "workflow-error"
)

// Display panel kinds.
const (
	DisplayStockInfo     = "stock-info"
	DisplayFinancialInfo = "financial-info"
	DisplayMarketInfo    = "market-info"
	DisplaySearchResults = "search_results"
)

// Event is one unit of the orchestrator's progress stream. The set of
// implementations is closed; Marshal handles every kind.
type Event interface {
	Kind() string
}

// StartEvent opens a run: the panel title and the ordered stage names the
// client renders as a checklist.
type StartEvent struct {
	Message string
	Title   string
	Steps   []string
}

func (StartEvent) Kind() string { return KindStart }

// ProgressEvent advances the checklist. Percentages are advisory UI hints,
// non-decreasing within a run.
type ProgressEvent struct {
	Message    string
	Step       int
	Percentage int
}

func (ProgressEvent) Kind() string { return KindProgress }

// DisplayEvent carries a renderable data panel. Exactly one of Content or
// Results is set, depending on the panel kind.
type DisplayEvent struct {
	DisplayKind string
	Title       string
	Query       string
	Content     map[string]any
	Results     []search.Result
}

func (DisplayEvent) Kind() string { return KindDisplay }

// CompleteEvent closes a successful run with the full report text.
type CompleteEvent struct {
	Message string
	Content string
}

func (CompleteEvent) Kind() string { return KindComplete }

// ErrorEvent closes a failed run. All three fields are user-facing: what
// went wrong, which part of the run it happened in, and what to try next.
type ErrorEvent struct {
	Err        string
	Details    string
	Suggestion string
}

func (ErrorEvent) Kind() string { return KindError }

// Sink receives each event exactly once, in emission order. Implementations
// must not fail the workflow: a write problem is the sink's to absorb.
type Sink interface {
	Emit(event Event)
}

// Marshal converts an event into its transport-safe wire form. Structured
// display payloads are flattened to JSON strings because the transport only
// carries primitive-valued fields; a payload that fails to serialize is
// omitted rather than aborting the event.
func Marshal(event Event) map[string]any {
	switch e := event.(type) {
	case StartEvent:
		return map[string]any{
			"type":       KindStart,
			"message":    e.Message,
			"step":       0,
			"percentage": 0,
			"display": map[string]any{
				"kind":   "workflow",
				"status": "start",
				"title":  e.Title,
				"steps":  e.Steps,
			},
		}
	case ProgressEvent:
		return map[string]any{
			"type":       KindProgress,
			"message":    e.Message,
			"step":       e.Step,
			"percentage": e.Percentage,
		}
	case DisplayEvent:
		display := map[string]any{
			"kind":  e.DisplayKind,
			"title": e.Title,
		}
		if e.Query != "" {
			display["query"] = e.Query
		}
		if e.Content != nil {
			if flat, err := json.Marshal(e.Content); err == nil {
				display["content"] = string(flat)
			}
		}
		if e.Results != nil {
			if flat, err := json.Marshal(e.Results); err == nil {
				display["results"] = string(flat)
			}
		}
		return map[string]any{
			"type":    KindDisplay,
			"display": display,
		}
	case CompleteEvent:
		data, err := json.Marshal(map[string]any{
			"completed": true,
			"length":    len(e.Content),
			"content":   e.Content,
		})
		wire := map[string]any{
			"type":    KindComplete,
			"message": e.Message,
		}
		if err == nil {
			wire["data"] = string(data)
		}
		return wire
	case ErrorEvent:
		return map[string]any{
			"type":       KindError,
			"error":      e.Err,
			"details":    e.Details,
			"suggestion": e.Suggestion,
		}
	default:
		return map[string]any{"type": "unknown"}
	}
}
