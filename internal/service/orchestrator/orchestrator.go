package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"motioncam/internal/dto"
	"motioncam/internal/logger"
	"motioncam/internal/model"
	"motioncam/internal/service/clock"
	"motioncam/internal/service/display"
	"motioncam/internal/service/sensor"
	"motioncam/internal/service/upload"
)

// ErrRestart is returned by Run when a fatal failure requires a device restart.
var ErrRestart = errors.New("restart requested")

// Capturer persists one frame for a detection stamp.
type Capturer interface {
	Capture(stamp string) (model.CaptureArtifact, error)
}

// Uploader hands a stored artifact to the cloud bucket.
type Uploader interface {
	Ready() bool
	Upload(ctx context.Context, artifact model.CaptureArtifact) model.UploadOutcome
}

// Display is the status screen driven once per tick.
type Display interface {
	Render(phase display.Phase)
	Settle() bool
}

// Records keeps the capture history. Optional.
type Records interface {
	Insert(rec *model.CaptureRecord) (int64, error)
	MarkOutcome(id int64, outcome model.UploadOutcome) error
}

// Backlog retries captures left behind by earlier boots. Optional.
type Backlog interface {
	Due(now time.Time) bool
	Drain(ctx context.Context) int
}

// Restarter is told about fatal failures.
type Restarter interface {
	Restart(cause error)
}

// RestartFunc adapts a function to Restarter.
type RestartFunc func(cause error)

func (f RestartFunc) Restart(cause error) { f(cause) }

type Options struct {
	BootID                string
	TickPeriod            time.Duration
	ResetPause            time.Duration
	LatchOnPersistFailure bool
}

// TickResult describes one pass through the loop.
type TickResult struct {
	Active   bool
	Path     []model.State
	Captured bool
	Artifact model.CaptureArtifact
	Outcome  *model.UploadOutcome
	Wrapped  bool
	Restart  bool
	Err      error
}

// State is the state the tick ended in.
func (r TickResult) State() model.State {
	if len(r.Path) == 0 {
		return model.StateIdle
	}
	return r.Path[len(r.Path)-1]
}

// Orchestrator owns the latch and drives capture, persist and upload from
// sensor readings. Tick and Run must be called from a single goroutine;
// Status is safe to call from anywhere.
type Orchestrator struct {
	sensor    sensor.Sensor
	capturer  Capturer
	uploader  Uploader
	display   Display
	clock     clock.Clock
	restarter Restarter
	records   Records
	backlog   Backlog
	logger    *logger.Logger
	opts      Options

	latched bool
	event   *model.MotionEvent
	state   model.State
	ticks   uint64

	statusMu sync.RWMutex
	status   dto.Health
}

func New(s sensor.Sensor, c Capturer, u Uploader, d Display, clk clock.Clock, r Restarter, opts Options, logger *logger.Logger) *Orchestrator {
	if opts.TickPeriod <= 0 {
		opts.TickPeriod = time.Second
	}
	if opts.ResetPause < 0 {
		opts.ResetPause = 0
	}
	o := &Orchestrator{
		sensor:    s,
		capturer:  c,
		uploader:  u,
		display:   d,
		clock:     clk,
		restarter: r,
		logger:    logger,
		opts:      opts,
		state:     model.StateIdle,
	}
	o.publish(nil)
	return o
}

// WithRecords attaches the capture history.
func (o *Orchestrator) WithRecords(records Records) *Orchestrator {
	o.records = records
	return o
}

// WithBacklog attaches the sweeper run on idle ticks.
func (o *Orchestrator) WithBacklog(backlog Backlog) *Orchestrator {
	o.backlog = backlog
	return o
}

// Latched reports whether the current motion event has already been captured.
func (o *Orchestrator) Latched() bool {
	return o.latched
}

// Event returns the motion event in progress, if any.
func (o *Orchestrator) Event() *model.MotionEvent {
	return o.event
}

// Status returns the last published snapshot.
func (o *Orchestrator) Status() dto.Health {
	o.statusMu.RLock()
	defer o.statusMu.RUnlock()
	return o.status
}

// Run ticks until ctx is done or a restart is required.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("Orchestrator started (tick %s, boot %s)", o.opts.TickPeriod, o.opts.BootID)

	for {
		res := o.Tick(ctx)
		if res.Restart {
			return fmt.Errorf("%w: %w", ErrRestart, res.Err)
		}

		wait := o.opts.TickPeriod
		if res.Wrapped {
			wait += o.opts.ResetPause
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			o.logger.Info("Orchestrator stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tick executes one loop pass.
func (o *Orchestrator) Tick(ctx context.Context) TickResult {
	o.ticks++
	res := TickResult{}

	active, err := o.sensor.Active()
	if err != nil {
		o.logger.Warning("Sensor read failed, skipping tick: %v", err)
		res.Err = err
		res.Path = []model.State{o.state}
		o.publish(nil)
		return res
	}
	res.Active = active

	if !active {
		o.idle(ctx, &res)
	} else {
		o.detected(ctx, &res)
	}

	if res.Restart {
		o.publish(&res)
		return res
	}

	res.Wrapped = o.display.Settle()
	o.publish(&res)
	return res
}

func (o *Orchestrator) idle(ctx context.Context, res *TickResult) {
	if o.latched {
		o.logger.Debug("Motion ended, latch cleared")
	}
	o.latched = false
	o.event = nil
	o.enter(res, model.StateIdle)

	o.display.Render(display.Idle())
	o.logger.Debug("No object in sight")

	if o.backlog != nil && o.backlog.Due(o.clock.Now()) {
		if n := o.backlog.Drain(ctx); n > 0 {
			o.logger.Info("Backlog sweep uploaded %d capture(s)", n)
		}
	}
}

func (o *Orchestrator) detected(ctx context.Context, res *TickResult) {
	now := o.clock.Now()
	stamp := o.clock.Stamp(now)

	if o.event == nil {
		o.event = &model.MotionEvent{DetectedAt: now, Stamp: stamp}
	}

	o.display.Render(display.Detecting(stamp))
	o.logger.Info("Detected at %s", stamp)

	if o.latched {
		o.enter(res, model.StateIdle)
		return
	}

	o.enter(res, model.StateTriggered)
	o.enter(res, model.StateCapturing)

	artifact, err := o.capturer.Capture(stamp)
	if err != nil {
		o.enter(res, model.StateCaptureFailed)
		res.Err = err

		if model.IsFatal(err) {
			o.logger.Error("Fatal capture failure, restarting: %v", err)
			res.Restart = true
			if o.restarter != nil {
				o.restarter.Restart(err)
			}
			return
		}

		o.logger.Warning("Capture abandoned: %v", err)
		if o.opts.LatchOnPersistFailure {
			o.setLatch()
		}
		o.enter(res, model.StateIdle)
		return
	}

	o.setLatch()
	res.Captured = true
	res.Artifact = artifact
	o.enter(res, model.StatePersisted)

	recordID := o.record(artifact)

	var outcome model.UploadOutcome
	if o.uploader == nil || !o.uploader.Ready() {
		outcome = model.Skipped(upload.ReasonNotReady)
		o.logger.Warning("Upload skipped for %s: %s", artifact.Filename, outcome.Reason)
	} else {
		o.enter(res, model.StateUploading)
		o.display.Render(display.Uploading())
		outcome = o.uploader.Upload(ctx, artifact)
	}
	res.Outcome = &outcome

	if recordID != 0 {
		if err := o.records.MarkOutcome(recordID, outcome); err != nil {
			o.logger.Warning("Failed to update capture record %d: %v", recordID, err)
		}
	}

	o.enter(res, model.StateIdle)
}

func (o *Orchestrator) setLatch() {
	o.latched = true
	if o.event != nil {
		o.event.Latched = true
	}
}

func (o *Orchestrator) record(artifact model.CaptureArtifact) int64 {
	if o.records == nil {
		return 0
	}
	id, err := o.records.Insert(model.NewCaptureRecord(o.opts.BootID, artifact))
	if err != nil {
		o.logger.Warning("Failed to record capture %s: %v", artifact.Filename, err)
		return 0
	}
	return id
}

func (o *Orchestrator) enter(res *TickResult, s model.State) {
	o.state = s
	res.Path = append(res.Path, s)
}

func (o *Orchestrator) publish(res *TickResult) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	o.status.State = o.state.String()
	o.status.Latched = o.latched
	o.status.UploaderReady = o.uploader != nil && o.uploader.Ready()
	o.status.Ticks = o.ticks
	o.status.UpdatedAt = time.Now()

	if res == nil {
		return
	}
	if res.Captured {
		o.status.LastCapture = res.Artifact.Filename
	}
	if res.Outcome != nil {
		o.status.LastOutcome = string(res.Outcome.Kind)
	}
}
