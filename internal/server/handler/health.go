package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger checks liveness of a backing dependency.
type Pinger func(ctx context.Context) error

// HealthHandler serves the health-check endpoint, optionally probing backing
// dependencies (database, redis).
type HealthHandler struct {
	pingers map[string]Pinger
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. The pingers map may be nil or
// empty for a pure liveness check.
func NewHealthHandler(pingers map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{pingers: pingers, logger: logger}
}

// HealthCheck responds with overall status plus a per-dependency breakdown.
// Any failing dependency degrades the response to 503.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.pingers))
	for name, ping := range h.pingers {
		if err := ping(ctx); err != nil {
			h.logger.WarnContext(ctx, "handler: health probe failed",
				slog.String("dependency", name),
				slog.String("error", err.Error()),
			)
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}

	writeJSON(w, status, body)
}
