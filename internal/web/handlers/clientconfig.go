package handlers

import (
	"net/http"

	"github.com/stafftrack/attendance/internal/config"
)

// ClientConfigHandler serves the timing constants kiosk and terminal
// frontends need for their geolocation and capture loops.
type ClientConfigHandler struct {
	thresholds *config.ThresholdsConfig
}

func NewClientConfigHandler(thresholds *config.ThresholdsConfig) *ClientConfigHandler {
	return &ClientConfigHandler{thresholds: thresholds}
}

func (h *ClientConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"geolocation_timeout_seconds": h.thresholds.Location.TimeoutSeconds,
		"geolocation_max_age_seconds": h.thresholds.Location.MaxAgeSeconds,
		"capture_poll_interval_ms":    h.thresholds.Capture.PollIntervalMs,
	})
}
