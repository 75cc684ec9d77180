package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/starseeker/internal/audio"
	"github.com/star/starseeker/internal/auth"
	"github.com/star/starseeker/internal/health"
	"github.com/star/starseeker/internal/httputil"
	"github.com/star/starseeker/internal/journal"
	"github.com/star/starseeker/internal/metrics"
	"github.com/star/starseeker/internal/pointing"
	"github.com/star/starseeker/internal/sky"
	"github.com/star/starseeker/internal/tle"
	"github.com/star/starseeker/internal/voice"
)

// Pointer runs pointing requests and exposes the active mount law.
type Pointer interface {
	Point(ctx context.Context, req sky.Request, opts pointing.Options) (pointing.Result, error)
	Converter() *pointing.Converter
	CanTransmit() bool
}

// Voice handles interpreted text and recorded speech.
type Voice interface {
	HandleText(ctx context.Context, text string, transmit bool) (voice.Outcome, error)
	HandleClip(ctx context.Context, clip audio.Clip) (voice.Outcome, error)
}

// JournalReader lists recent requests.
type JournalReader interface {
	Enabled() bool
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Config holds listener settings.
type Config struct {
	Addr       string
	Auth       auth.Config
	TrustProxy bool
	// MaxVoicePerIP bounds concurrent interpret and voice requests per client.
	MaxVoicePerIP int
	MaxVoiceTotal int
}

// Deps are the services behind the routes. Voice, Journal and Satellites
// may be nil; their routes then report the feature as unavailable.
type Deps struct {
	Pointer    Pointer
	Voice      Voice
	Journal    JournalReader
	Satellites *tle.Store
	Ready      []health.Check
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, deps Deps, logger *slog.Logger) *Server {
	h := &handlers{deps: deps, logger: logger}
	limiter := newPipelineLimiter(cfg.MaxVoicePerIP, cfg.MaxVoiceTotal)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(deps.Ready...))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1/resolve", h.resolve)
	mux.HandleFunc("POST /api/v1/point", h.point)
	mux.HandleFunc("POST /api/v1/interpret", limiter.wrap(cfg.TrustProxy, h.interpret))
	mux.HandleFunc("POST /api/v1/voice", limiter.wrap(cfg.TrustProxy, h.voice))
	mux.HandleFunc("GET /api/v1/satellites", h.satellites)
	mux.HandleFunc("GET /api/v1/mount", h.mount)
	mux.HandleFunc("GET /api/v1/journal", h.journal)

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       30 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			// The voice route waits on speech recognition and the model.
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
