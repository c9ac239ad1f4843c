package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/config"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string   `json:"status"`
	Version     string   `json:"version"`
	Service     string   `json:"service"`
	GoVersion   string   `json:"go_version"`
	Hostname    string   `json:"hostname"`
	Environment string   `json:"environment"`
	Engines     []string `json:"engines"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

// StatePinger checks that profile state storage is reachable.
type StatePinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg     *config.Config
	state   StatePinger
	engines func() []string
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. state may be nil, in which
// case /health does not check storage. engines lists compiled-in database engines.
func NewHealthHandler(cfg *config.Config, state StatePinger, engines func() []string, logger *zap.Logger) *HealthHandler {
	if engines == nil {
		engines = func() []string { return []string{} }
	}
	return &HealthHandler{cfg: cfg, state: state, engines: engines, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ping", h.Ping)
}

// Health handles GET /health requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "ok", State: "unchecked"}
	status := http.StatusOK

	if h.state != nil {
		if err := h.state.PingContext(r.Context()); err != nil {
			h.logger.Error("State storage ping failed", zap.Error(err))
			response.Status = "degraded"
			response.State = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			response.State = "ok"
		}
	}

	if err := WriteJSON(w, status, response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "ekaya-dbproxy",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
		Engines:     h.engines(),
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
