package dto

import "time"

// Health is the /healthz payload.
type Health struct {
	State         string    `json:"state"`
	Latched       bool      `json:"latched"`
	UploaderReady bool      `json:"uploaderReady"`
	LastCapture   string    `json:"lastCapture,omitempty"`
	LastOutcome   string    `json:"lastOutcome,omitempty"`
	Ticks         uint64    `json:"ticks"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
