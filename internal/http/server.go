// Package http serves health checks, metrics and the now-playing identification API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tohoinfo/internal/core"
	"tohoinfo/internal/store"
)

const (
	serviceName = "tohoinfo"

	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
	shutdownTimeout     = 10 * time.Second
)

// HistoryReader lists recent identifications.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]store.Entry, error)
}

// State keeps the last published result for the API. It is a core.Sink.
type State struct {
	mu     sync.RWMutex
	latest *core.Result
}

var _ core.Sink = (*State)(nil)

func (s *State) Publish(_ context.Context, result *core.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = result
}

// Latest returns the last published result, or nil.
func (s *State) Latest() *core.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
	state   *State
	history HistoryReader
	player  core.OriginalPlayer
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables /api/history.
func WithHistory(history HistoryReader) Option {
	return func(s *Server) {
		s.history = history
	}
}

// WithPlayer enables POST /api/play.
func WithPlayer(player core.OriginalPlayer) Option {
	return func(s *Server) {
		s.player = player
	}
}

func NewServer(config *core.ServerConfig, logger *zap.Logger, metrics *Metrics, state *State, opts ...Option) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if state == nil {
		state = &State{}
	}
	s := &Server{
		config:  config,
		logger:  logger,
		metrics: metrics,
		state:   state,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = createHTTPServer(config, s.setupRoutes())
	return s
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if s.state.Latest() == nil {
			writeJSON(w, s.logger, http.StatusServiceUnavailable, map[string]string{"status": "starting", "service": serviceName})
			return
		}
		writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ready", "service": serviceName})
	})

	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/api/now", s.handleNow)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/play", s.handlePlay)
	mux.HandleFunc("/", homeHandler(s.logger))

	return mux
}

func (s *Server) handleNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, s.logger, http.MethodGet)
		return
	}
	latest := s.state.Latest()
	if latest == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, latest)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, s.logger, http.MethodGet)
		return
	}
	if s.history == nil {
		writeError(w, s.logger, http.StatusNotFound, "history is disabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, s.logger, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to read history", zap.Error(err))
		writeError(w, s.logger, http.StatusInternalServerError, "failed to read history")
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, s.logger, http.StatusOK, entries)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, s.logger, http.MethodPost)
		return
	}
	if s.player == nil {
		writeError(w, s.logger, http.StatusNotFound, "playback is disabled")
		return
	}

	latest := s.state.Latest()
	if latest == nil || latest.Identity == nil {
		s.metrics.RecordPlay("nothing")
		writeError(w, s.logger, http.StatusConflict, "nothing identified yet")
		return
	}

	if err := s.player.PlayOriginal(r.Context(), latest); err != nil {
		s.metrics.RecordPlay("error")
		s.logger.Warn("Failed to play original", zap.String("cycle_id", latest.CycleID), zap.Error(err))
		writeError(w, s.logger, http.StatusBadGateway, err.Error())
		return
	}

	s.metrics.RecordPlay("ok")
	writeJSON(w, s.logger, http.StatusAccepted, map[string]string{"status": "playing", "cycleId": latest.CycleID})
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(homePage)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

const homePage = `<!DOCTYPE html>
<html>
<head>
    <title>TohoInfo</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
        .endpoint a:hover { text-decoration: underline; }
    </style>
</head>
<body>
    <h1 class="header">TohoInfo</h1>
    <p>Identifies the Touhou original behind the track playing on Spotify.</p>

    <h2>Endpoints</h2>
    <div class="endpoint"><a href="/api/now">Now playing</a> - Latest identification</div>
    <div class="endpoint"><a href="/api/history">History</a> - Recently identified tracks</div>
    <div class="endpoint">POST /api/play - Play the original on Spotify</div>
    <div class="endpoint"><a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint"><a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint"><a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, status int, message string) {
	writeJSON(w, logger, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter, logger *zap.Logger, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, logger, http.StatusMethodNotAllowed, "method not allowed")
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}
