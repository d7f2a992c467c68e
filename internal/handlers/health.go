package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/story-rooms/internal/services"
)

type HealthResponse struct {
	Status     string         `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
	Service    string         `json:"service"`
	Components map[string]any `json:"components"`
}

type HealthHandler struct {
	redis  services.Pinger
	rooms  func() int
	logger *slog.Logger
}

// NewHealthHandler reports on redis, which may be nil when broadcasting is
// disabled, and on the number of active rooms.
func NewHealthHandler(redis services.Pinger, rooms func() int, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		redis:  redis,
		rooms:  rooms,
		logger: logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]any)
	overallStatus := "healthy"

	switch {
	case h.redis == nil:
		components["redis"] = "disabled"
	default:
		if err := h.redis.Ping(ctx); err != nil {
			h.logger.Warn("Redis health check failed", "error", err)
			components["redis"] = "unhealthy"
			overallStatus = "degraded"
		} else {
			components["redis"] = "healthy"
		}
	}
	if h.rooms != nil {
		components["rooms"] = h.rooms()
	}

	response := HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "story-rooms",
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Error encoding health response",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
	}
}
