package camera

import (
	"errors"
	"fmt"
	"io"
	"time"

	"motioncam/internal/logger"
	"motioncam/internal/model"
	"motioncam/internal/service/flash"
)

// DefaultWarmupFrames is how many frames are discarded while auto-exposure settles.
const DefaultWarmupFrames = 4

// Light is the flash LED lit while a picture is taken.
type Light interface {
	Set(on bool) error
}

// Pipeline captures a still frame and persists it to the flash store.
type Pipeline struct {
	driver Driver
	store  flash.Store
	light  Light
	warmup int
	logger *logger.Logger
	now    func() time.Time
}

// NewPipeline creates a capture pipeline discarding warmup frames before each capture.
func NewPipeline(driver Driver, store flash.Store, warmup int, logger *logger.Logger) *Pipeline {
	if warmup < 0 {
		warmup = DefaultWarmupFrames
	}
	return &Pipeline{
		driver: driver,
		store:  store,
		warmup: warmup,
		logger: logger,
		now:    time.Now,
	}
}

// WithLight switches l on for the duration of every capture.
func (p *Pipeline) WithLight(l Light) *Pipeline {
	p.light = l
	return p
}

// Capture takes one picture named after stamp and writes it to "/<stamp>-img.jpg".
// A missing frame is fatal; store failures are soft-local. The acquired frame is
// released exactly once on every path, and a partially written file is removed.
func (p *Pipeline) Capture(stamp string) (model.CaptureArtifact, error) {
	if p.light != nil {
		p.switchLight(true)
		defer p.switchLight(false)
	}

	for i := 0; i < p.warmup; i++ {
		frame, err := p.driver.Acquire()
		if err != nil || frame == nil {
			continue
		}
		p.driver.Release(frame)
	}

	frame, err := p.driver.Acquire()
	if err == nil && frame == nil {
		err = ErrNoFrame
	}
	if err != nil {
		p.logger.Error("Camera capture failed: %v", err)
		return model.CaptureArtifact{}, model.Fatal("capture", "camera capture failed", errors.Join(model.ErrSensorUnavailable, err))
	}
	defer p.driver.Release(frame)

	artifact := model.NewCaptureArtifact(stamp, int64(len(frame.Data)), p.now())
	p.logger.Info("Picture file name: %s", artifact.LocalPath)

	file, err := p.store.Create(artifact.LocalPath)
	if err != nil {
		p.logger.Error("Failed to open file in writing mode: %v", err)
		return model.CaptureArtifact{}, model.SoftLocal("capture", "failed to open file in writing mode", err)
	}

	if err := writeAll(file, frame.Data); err != nil {
		p.logger.Error("Failed to write %s: %v", artifact.LocalPath, err)
		if rmErr := p.store.Remove(artifact.LocalPath); rmErr != nil {
			p.logger.Warning("Failed to remove partial picture %s: %v", artifact.LocalPath, rmErr)
		}
		return model.CaptureArtifact{}, model.SoftLocal("capture", "failed to write picture", err)
	}

	p.logger.Info("The picture has been saved in %s - Size: %d bytes", artifact.LocalPath, artifact.Size)
	return artifact, nil
}

func (p *Pipeline) switchLight(on bool) {
	if err := p.light.Set(on); err != nil {
		p.logger.Warning("Flash LED: %v", err)
	}
}

// writeAll writes data in one call and closes w, treating a short write as failure.
func writeAll(w io.WriteCloser, data []byte) error {
	n, err := w.Write(data)
	closeErr := w.Close()
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("%w: wrote %d of %d bytes", io.ErrShortWrite, n, len(data))
	}
	return closeErr
}
