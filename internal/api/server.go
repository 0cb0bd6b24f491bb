package api

import (
	"errors"
	"net/http"

	"github.com/kanpan0/kanpan/internal/log"
)

// defaultRateBurst is the per-IP token bucket size when the config leaves
// it unset.
const defaultRateBurst = 60

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      log.Logger
	Runner      ReportRunner  // Required
	Streamer    ChatStreamer  // Required
	Retriever   ChatRetriever // Optional: page retrieval for URL-bearing chat messages
	CORSOrigins []string      // Allowed origins for CORS
	IsDev       bool         // Disables HSTS
	TrustProxy  bool         // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst   int          // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON/SSE API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("report runner is required")
	}
	if cfg.Streamer == nil {
		return nil, errors.New("chat streamer is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	rh := &reportHandler{runner: cfg.Runner, logger: logger}
	ch := &chatHandler{streamer: cfg.Streamer, runner: cfg.Runner, retriever: cfg.Retriever, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/report", rh.generate)
	mux.HandleFunc("POST /api/v1/chat", ch.send)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
