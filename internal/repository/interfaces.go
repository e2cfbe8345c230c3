package repository

import (
	"motioncam/internal/model"
)

// CaptureRepository defines the interface for capture record operations.
type CaptureRepository interface {
	// Create operations
	Insert(rec *model.CaptureRecord) (int64, error)

	// Read operations
	GetByID(id int64) (*model.CaptureRecord, error)
	GetByLocalPath(path string) (*model.CaptureRecord, error)
	GetAll(filter *model.CaptureFilter) ([]model.CaptureRecord, error)
	GetTotalCount(filter *model.CaptureFilter) (int, error)
	GetBacklog(currentBoot string, maxAttempts int) ([]model.CaptureRecord, error)

	// Update operations
	MarkOutcome(id int64, outcome model.UploadOutcome) error

	// Delete operations
	Delete(id int64) error
}
