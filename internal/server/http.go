package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/headpan/internal/config"
	"github.com/skypro1111/headpan/internal/metrics"
	"github.com/skypro1111/headpan/internal/pipewire"
)

// Discoverer lists the nodes currently in the audio graph. *pipewire.Sync implements it.
type Discoverer interface {
	Discover(ctx context.Context) ([]pipewire.Node, error)
}

// HTTPServer provides HTTP API endpoints for monitoring
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	loop       *Loop
	discoverer Discoverer
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer

	startTime time.Time
	runID     string
}

// HTTPServerConfig contains HTTP server configuration
type HTTPServerConfig struct {
	Port    int
	Address string
	RunID   string
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg HTTPServerConfig, logger *slog.Logger, appConfig *config.Config,
	loop *Loop, discoverer Discoverer, m *metrics.Metrics, gatherer prometheus.Gatherer) *HTTPServer {

	h := &HTTPServer{
		logger:     logger.With(slog.String("component", "http")),
		config:     appConfig,
		loop:       loop,
		discoverer: discoverer,
		metrics:    m,
		gatherer:   gatherer,
		startTime:  time.Now(),
		runID:      cfg.RunID,
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Handler returns the root handler, mainly for tests
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))
	mux.HandleFunc("/streams", h.withMetrics("/streams", h.handleStreams))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// no request metrics for the metrics endpoint itself
	mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server in the background
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := h.loop.GetStatistics()
	snapshot, tracking := h.loop.Snapshot()

	status := "waiting"
	if tracking {
		status = "tracking"
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"run_id":    h.runID,
		"components": map[string]interface{}{
			"telemetry": map[string]interface{}{
				"status":           status,
				"packets_received": stats.PacketsReceived,
				"frames_decoded":   stats.FramesDecoded,
				"malformed_frames": stats.MalformedFrames,
				"receive_errors":   stats.ReceiveErrors,
			},
			"pipewire": map[string]interface{}{
				"streams":      snapshot.Streams,
				"apply_cycles": stats.ApplyCycles,
			},
		},
	}

	writeJSON(w, health)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, ok := h.loop.Snapshot()

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"loop":      h.loop.GetStatistics(),
	}
	if ok {
		stats["last_cycle"] = snapshot
	}

	writeJSON(w, stats)
}

// handleStreams implements the /streams endpoint with a live discovery pass
func (h *HTTPServer) handleStreams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	nodes, err := h.discoverer.Discover(r.Context())
	if err != nil {
		h.logger.Warn("Stream discovery failed", slog.String("error", err.Error()))
		http.Error(w, "Stream discovery failed", http.StatusBadGateway)
		return
	}

	playback := pipewire.PlaybackNodes(nodes)
	if playback == nil {
		playback = []pipewire.Node{}
	}

	writeJSON(w, map[string]interface{}{
		"total_nodes":      len(nodes),
		"total_streams":    len(playback),
		"timestamp":        time.Now().UTC(),
		"playback_streams": playback,
	})
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c := h.config
	writeJSON(w, map[string]interface{}{
		"server": map[string]interface{}{
			"udp_port":        c.Server.UDPPort,
			"bind_address":    c.Server.BindAddress,
			"buffer_size":     c.Server.BufferSize,
			"update_interval": c.Server.UpdateInterval,
		},
		"tracking": map[string]interface{}{
			"smoothing_factor":    c.Tracking.SmoothingFactor,
			"yaw_sensitivity":     c.Tracking.YawSensitivity,
			"pitch_sensitivity":   c.Tracking.PitchSensitivity,
			"dead_zone":           c.Tracking.DeadZone,
			"min_volume":          c.Tracking.MinVolume,
			"max_volume":          c.Tracking.MaxVolume,
			"min_channel":         c.Tracking.MinChannel,
			"latency_window_size": c.Tracking.LatencyWindowSize,
		},
		"pipewire": map[string]interface{}{
			"binary":          c.PipeWire.Binary,
			"media_class":     c.PipeWire.MediaClass,
			"lookahead_lines": c.PipeWire.LookaheadLines,
			"command_timeout": c.PipeWire.CommandTimeout,
		},
		"logging": map[string]interface{}{
			"level":           c.Logging.Level,
			"format":          c.Logging.Format,
			"output":          c.Logging.Output,
			"report_interval": c.Logging.ReportInterval,
		},
	})
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, map[string]interface{}{
		"service": "headpan",
		"endpoints": map[string]interface{}{
			"GET /":        "API documentation",
			"GET /health":  "Service health check",
			"GET /stats":   "Loop counters and the last apply cycle",
			"GET /streams": "Live PipeWire playback streams",
			"GET /config":  "Effective configuration",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
