package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hotrod462/mikey/internal/config"
)

// HTTPServer provides HTTP endpoints for monitoring a recording session
type HTTPServer struct {
	server *http.Server
	logger *slog.Logger
	config *config.Config

	startTime time.Time
}

// NewHTTPServer creates a new monitoring server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, appConfig *config.Config) *HTTPServer {
	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		startTime: time.Now(),
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

// setupRoutes configures HTTP routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/config", h.handleConfig)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", h.handleRoot)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting monitoring server",
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
	h.logger.Info("Stopping monitoring server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    "mikey",
			"version": "1.0.0",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// API keys are intentionally omitted
	sanitized := map[string]interface{}{
		"capture": map[string]interface{}{
			"system_device":     h.config.Capture.SystemDevice,
			"mic_device":        h.config.Capture.MicDevice,
			"flush_interval":    h.config.Capture.FlushInterval,
			"warm_up":           h.config.Capture.WarmUp,
			"system_format":     h.config.Capture.SystemFormat,
			"mic_format":        h.config.Capture.MicFormat,
			"system_frame_size": h.config.Capture.SystemFrameSize,
			"mic_frame_size":    h.config.Capture.MicFrameSize,
		},
		"session": map[string]interface{}{
			"base_dir":       h.config.Session.BaseDir,
			"order_by_start": h.config.Session.OrderByStart,
		},
		"transcription": map[string]interface{}{
			"backend":         h.config.Transcription.Backend,
			"model":           h.config.Transcription.Model,
			"language":        h.config.Transcription.Language,
			"chunk_seconds":   h.config.Transcription.ChunkSeconds,
			"overlap_seconds": h.config.Transcription.OverlapSeconds,
			"cooldown":        h.config.Transcription.Cooldown,
			"max_attempts":    h.config.Transcription.MaxAttempts,
		},
		"notes": map[string]interface{}{
			"enabled": h.config.Notes.Enabled,
			"model":   h.config.Notes.Model,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitized)
}

// handleRoot implements the / endpoint
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Mikey Meeting Recorder",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":        "API documentation",
			"GET /health":  "Service health check",
			"GET /config":  "Get recorder configuration",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
