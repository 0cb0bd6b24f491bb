// Package api implements the JSON/SSE HTTP surface: a chat endpoint that
// routes report-intent messages into the research workflow, a direct report
// endpoint, and health probes, behind the standard middleware stack
// (recovery, request ID, logging, CORS, per-IP rate limiting).
//
// Both chat and report responses stream over Server-Sent Events. Workflow
// events cross as unnamed SSE messages whose JSON payload carries the
// "type" discriminator; chat output uses named chunk/done/error events.
package api
