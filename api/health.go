package api

import (
	"net/http"
	"os"

	"github.com/vyomlabs/vyom/internal/log"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	dataDir string
	logger  log.Logger
}

// NewHealthHandler creates a new health handler. dataDir is the
// session storage root checked for readiness.
func NewHealthHandler(dataDir string, logger log.Logger) *HealthHandler {
	return &HealthHandler{dataDir: dataDir, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness returns 200 OK when the storage root is reachable.
func (h *HealthHandler) readiness(w http.ResponseWriter, _ *http.Request) {
	info, err := os.Stat(h.dataDir)
	if err != nil || !info.IsDir() {
		h.logger.Error("readiness check failed", "data_dir", h.dataDir, "error", err)
		http.Error(w, "storage not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
