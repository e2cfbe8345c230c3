package camera

import (
	"errors"
	"sync"
	"time"
)

// ErrNoFrame is returned by Acquire when the sensor produced nothing.
var ErrNoFrame = errors.New("no frame available")

// Frame is a JPEG-encoded frame buffer owned by the driver until released.
type Frame struct {
	Data       []byte
	Width      int
	Height     int
	AcquiredAt time.Time

	releaseOnce sync.Once
	release     func()
}

// NewFrame wraps data; release runs at most once when the frame is returned.
func NewFrame(data []byte, width, height int, release func()) *Frame {
	return &Frame{
		Data:       data,
		Width:      width,
		Height:     height,
		AcquiredAt: time.Now(),
		release:    release,
	}
}

// Return hands the buffer back. Calling it again is a no-op.
func (f *Frame) Return() {
	if f == nil {
		return
	}
	f.releaseOnce.Do(func() {
		if f.release != nil {
			f.release()
		}
		f.Data = nil
	})
}

// Driver is the image sensor: hardware init from a profile, then frame
// acquisition and release.
type Driver interface {
	Init(profile Profile) error
	Acquire() (*Frame, error)
	Release(frame *Frame)
	Close() error
}
