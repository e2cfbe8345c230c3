package model

import "time"

const (
	// ArtifactSuffix is appended to the detection time to build an image filename.
	ArtifactSuffix = "-img.jpg"
	// RemotePrefix is the bucket folder uploaded images are written under.
	RemotePrefix = "data/"
	// ContentTypeJPEG is the content type of every uploaded artifact.
	ContentTypeJPEG = "image/jpeg"
)

// MotionEvent is one run of consecutive active sensor readings.
type MotionEvent struct {
	DetectedAt time.Time
	Stamp      string
	Latched    bool
}

// CaptureArtifact describes a frame that has been persisted to the flash store.
type CaptureArtifact struct {
	Filename   string    `json:"filename"`
	LocalPath  string    `json:"localPath"`
	RemotePath string    `json:"remotePath"`
	Size       int64     `json:"size"`
	CapturedAt time.Time `json:"capturedAt"`
}

// ArtifactFilename returns "<stamp>-img.jpg".
func ArtifactFilename(stamp string) string {
	return stamp + ArtifactSuffix
}

// NewCaptureArtifact derives the local and remote paths for a capture taken at stamp.
func NewCaptureArtifact(stamp string, size int64, capturedAt time.Time) CaptureArtifact {
	name := ArtifactFilename(stamp)
	return CaptureArtifact{
		Filename:   name,
		LocalPath:  "/" + name,
		RemotePath: RemotePrefix + name,
		Size:       size,
		CapturedAt: capturedAt,
	}
}
