package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/faisalnazir/AnonCam/internal/pipeline"
)

// healthServer exposes liveness/readiness/metrics endpoints over the
// running pipeline's state and counters, following the same
// mux-plus-three-handlers shape as other daemons in this codebase but
// keyed off a single Pipeline instead of a worker fleet.
type healthServer struct {
	addr     string
	logger   *slog.Logger
	server   *http.Server
	started  time.Time
	pipeline *pipeline.Pipeline
}

func newHealthServer(port string, logger *slog.Logger) *healthServer {
	return &healthServer{addr: ":" + port, logger: logger, started: time.Now()}
}

type healthStatus struct {
	Status              string  `json:"status"`
	UptimeSeconds       int64   `json:"uptime_seconds"`
	PipelineState       string  `json:"pipeline_state"`
	FPS                 float64 `json:"fps"`
	TransientErrors     uint64  `json:"transient_errors"`
	BackpressureDrops   uint64  `json:"backpressure_drops"`
	ResourceExhaustions uint64  `json:"resource_exhaustions"`
	RingDetachDrops     uint64  `json:"ring_detach_drops"`
	FatalTransitions    uint64  `json:"fatal_transitions"`
}

func (h *healthServer) check() healthStatus {
	status := healthStatus{Status: "healthy", UptimeSeconds: int64(time.Since(h.started).Seconds())}
	if h.pipeline == nil {
		status.Status = "unhealthy"
		return status
	}
	status.PipelineState = h.pipeline.State().String()
	status.FPS = h.pipeline.FPS()
	counters := h.pipeline.Counters()
	status.TransientErrors = counters.TransientErrors
	status.BackpressureDrops = counters.BackpressureDrops
	status.ResourceExhaustions = counters.ResourceExhaustions
	status.RingDetachDrops = counters.RingDetachDrops
	status.FatalTransitions = counters.FatalTransitions

	if status.PipelineState == "errored" {
		status.Status = "unhealthy"
	} else if status.PipelineState != "running" {
		status.Status = "degraded"
	}
	return status
}

func (h *healthServer) livenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "alive",
		"uptime": int64(time.Since(h.started).Seconds()),
	})
}

func (h *healthServer) readinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := h.check()
	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

// metricsHandler is a plain-text stub, matching the reference daemon's
// current metrics endpoint: a placeholder ahead of real Prometheus
// integration.
func (h *healthServer) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	status := h.check()
	w.Write([]byte("# anoncam metrics endpoint (future implementation)\n"))
	w.Write([]byte("anoncam_pipeline_state{} \"" + status.PipelineState + "\"\n"))
	w.Write([]byte(fmt.Sprintf("anoncam_fps %.2f\n", status.FPS)))
}

func (h *healthServer) start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.livenessHandler)
	mux.HandleFunc("/readiness", h.readinessHandler)
	mux.HandleFunc("/metrics", h.metricsHandler)

	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	h.logger.Info("starting health check server", "addr", h.addr, "endpoints", []string{"/health", "/readiness", "/metrics"})

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("health server stopped", "error", err)
		}
	}()
	return nil
}

func (h *healthServer) shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}
