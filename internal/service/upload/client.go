// Package upload transfers persisted captures to the cloud bucket.
package upload

import (
	"context"
	"errors"
	"io"

	"motioncam/internal/model"
)

// Client is the cloud storage collaborator.
type Client interface {
	// Authenticate establishes the session; Ready reports whether it is still valid.
	Authenticate(ctx context.Context) error
	Ready() bool
	// Upload streams body to task.RemotePath and returns a retrievable URL.
	Upload(ctx context.Context, task model.UploadTask, body io.Reader) (string, error)
}

// ErrOffline is returned by Offline for every operation.
var ErrOffline = errors.New("cloud storage offline")

// Offline is the client used when no session could be set up. It is never ready.
type Offline struct{}

func (Offline) Authenticate(context.Context) error { return ErrOffline }
func (Offline) Ready() bool                        { return false }

func (Offline) Upload(context.Context, model.UploadTask, io.Reader) (string, error) {
	return "", ErrOffline
}
