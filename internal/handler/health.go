package handler

import (
	"encoding/json"
	"net/http"

	"motioncam/internal/dto"
	"motioncam/internal/logger"
)

// StatusSource reports the current orchestrator status.
type StatusSource interface {
	Status() dto.Health
}

// HealthHandler reports the orchestrator state as JSON.
func HealthHandler(source StatusSource, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(source.Status()); err != nil {
			logger.Error("Error encoding health response: %v", err)
		}
	}
}
