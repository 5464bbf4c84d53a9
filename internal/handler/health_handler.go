package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/codelinker-admin/internal/clock"
)

// Health statuses reported by the probe.
const (
	statusHealthy = "healthy"
	statusWarning = "warning"
	statusError   = "error"
)

// heapWarningBytes is the heap size above which the probe degrades to
// a warning instead of failing.
const heapWarningBytes = 1 << 30

// DatabaseChecker is the slice of the storage layer the probe needs.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	db     DatabaseChecker
	clock  clock.Clock
	logger zerolog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db DatabaseChecker, clk clock.Clock, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		clock:  clk,
		logger: logger.With().Str("handler", "health").Logger(),
	}
}

// Health handles GET /system/health. It always answers 200; the body
// carries the observed state.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:    statusHealthy,
		Timestamp: h.clock.Now().Format(instantLayout),
		Error:     "",
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp.Details = map[string]any{
		"system": map[string]any{
			"os":      runtime.GOOS,
			"arch":    runtime.GOARCH,
			"runtime": runtime.Version(),
			"cpus":    runtime.NumCPU(),
		},
		"goroutines":     runtime.NumGoroutine(),
		"heap_in_use":    fmt.Sprintf("%.2f MB", float64(mem.HeapInuse)/(1024*1024)),
		"heap_allocated": fmt.Sprintf("%.2f MB", float64(mem.HeapAlloc)/(1024*1024)),
		"gc_cycles":      mem.NumGC,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error().Err(err).Msg("health probe: database unreachable")
		resp.Status = statusError
		resp.Error = fmt.Sprintf("database: %v", err)
		resp.Details["database"] = "unreachable"
	} else {
		resp.Details["database"] = "ok"
	}

	if resp.Status == statusHealthy && mem.HeapInuse > heapWarningBytes {
		resp.Status = statusWarning
		resp.Error = "high heap usage"
	}

	writeJSON(w, http.StatusOK, resp)
}
