package model

import "time"

// RecordStatus tracks where a capture is in its upload lifecycle.
type RecordStatus string

const (
	RecordPending  RecordStatus = "pending"
	RecordUploaded RecordStatus = "uploaded"
	RecordSkipped  RecordStatus = "skipped"
	RecordFailed   RecordStatus = "failed"
)

// CaptureRecord is the persisted row for a stored capture.
type CaptureRecord struct {
	ID          int64        `json:"id"`
	BootID      string       `json:"boot_id"`
	Filename    string       `json:"filename"`
	LocalPath   string       `json:"local_path"`
	RemotePath  string       `json:"remote_path"`
	FileSize    int64        `json:"file_size"`
	CapturedAt  time.Time    `json:"captured_at"`
	Status      RecordStatus `json:"status"`
	DownloadURL string       `json:"download_url"`
	Reason      string       `json:"reason"`
	Attempts    int          `json:"attempts"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewCaptureRecord builds a pending record for a freshly persisted artifact.
func NewCaptureRecord(bootID string, a CaptureArtifact) *CaptureRecord {
	return &CaptureRecord{
		BootID:     bootID,
		Filename:   a.Filename,
		LocalPath:  a.LocalPath,
		RemotePath: a.RemotePath,
		FileSize:   a.Size,
		CapturedAt: a.CapturedAt,
		Status:     RecordPending,
	}
}

// Artifact rebuilds the artifact a record points at.
func (r *CaptureRecord) Artifact() CaptureArtifact {
	return CaptureArtifact{
		Filename:   r.Filename,
		LocalPath:  r.LocalPath,
		RemotePath: r.RemotePath,
		Size:       r.FileSize,
		CapturedAt: r.CapturedAt,
	}
}

// StatusFor maps an upload outcome onto a record status.
func StatusFor(o UploadOutcome) RecordStatus {
	switch o.Kind {
	case OutcomeUploaded:
		return RecordUploaded
	case OutcomeSkipped:
		return RecordSkipped
	default:
		return RecordFailed
	}
}

// CaptureFilter narrows record listings.
type CaptureFilter struct {
	Status RecordStatus
	BootID string
	Limit  int
	Offset int
}
