package model

import (
	"fmt"
	"time"
)

// UploadTask is a single transfer of a local file to the bucket.
type UploadTask struct {
	Bucket      string
	LocalPath   string
	RemotePath  string
	ContentType string
}

// NewUploadTask builds the task for an artifact.
func NewUploadTask(bucket string, artifact CaptureArtifact) UploadTask {
	return UploadTask{
		Bucket:      bucket,
		LocalPath:   artifact.LocalPath,
		RemotePath:  artifact.RemotePath,
		ContentType: ContentTypeJPEG,
	}
}

// UploadPhase orders the events of a transfer.
type UploadPhase int

const (
	UploadInit UploadPhase = iota
	UploadProgress
	UploadComplete
	UploadError
)

func (p UploadPhase) String() string {
	switch p {
	case UploadInit:
		return "init"
	case UploadProgress:
		return "progress"
	case UploadComplete:
		return "complete"
	case UploadError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no further events follow.
func (p UploadPhase) Terminal() bool {
	return p == UploadComplete || p == UploadError
}

// UploadEvent is one status report of a transfer.
type UploadEvent struct {
	Phase      UploadPhase
	LocalFile  string
	RemoteFile string
	Size       int64
	Percent    int
	Elapsed    time.Duration
	URL        string
	Message    string
}

// OutcomeKind classifies how an upload ended.
type OutcomeKind string

const (
	OutcomeUploaded OutcomeKind = "uploaded"
	OutcomeSkipped  OutcomeKind = "skipped"
	OutcomeFailed   OutcomeKind = "failed"
)

// UploadOutcome is the result of an upload attempt.
type UploadOutcome struct {
	Kind   OutcomeKind `json:"kind"`
	URL    string      `json:"url,omitempty"`
	Reason string      `json:"reason,omitempty"`
}

func Uploaded(url string) UploadOutcome { return UploadOutcome{Kind: OutcomeUploaded, URL: url} }

func Skipped(reason string) UploadOutcome { return UploadOutcome{Kind: OutcomeSkipped, Reason: reason} }

func Failed(reason string) UploadOutcome { return UploadOutcome{Kind: OutcomeFailed, Reason: reason} }
