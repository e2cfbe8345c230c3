package upload

import (
	"context"
	"fmt"
	"io"
	"iter"
	"sync/atomic"
	"time"

	"motioncam/internal/logger"
	"motioncam/internal/model"
	"motioncam/internal/service/flash"
)

// ReasonNotReady is the skip reason when no authenticated session exists.
const ReasonNotReady = "uploader not ready"

// Pipeline hands stored captures to the cloud client. One transfer at a time,
// synchronous from the caller's point of view, never retried.
type Pipeline struct {
	client  Client
	store   flash.Store
	bucket  string
	timeout time.Duration
	logger  *logger.Logger
	now     func() time.Time
}

// NewPipeline creates an upload pipeline. A zero timeout leaves transfers unbounded.
func NewPipeline(client Client, store flash.Store, bucket string, timeout time.Duration, logger *logger.Logger) *Pipeline {
	return &Pipeline{
		client:  client,
		store:   store,
		bucket:  bucket,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Ready reports whether the upload prerequisite holds.
func (p *Pipeline) Ready() bool {
	return p != nil && p.client != nil && p.client.Ready()
}

// Upload transfers artifact and reports how it ended.
func (p *Pipeline) Upload(ctx context.Context, artifact model.CaptureArtifact) model.UploadOutcome {
	if !p.Ready() {
		p.logger.Warning("Upload of %s skipped: %s", artifact.Filename, ReasonNotReady)
		return model.Skipped(ReasonNotReady)
	}

	p.logger.Info("Begin uploading picture...")
	outcome := model.Failed("transfer ended without a result")

	for ev := range p.Transfer(ctx, artifact).Events() {
		switch ev.Phase {
		case model.UploadInit:
			p.logger.Info("Uploading file %s (%d) to %s", ev.LocalFile, ev.Size, ev.RemoteFile)
		case model.UploadProgress:
			p.logger.Info("Uploaded %d%%, Elapsed time %d ms", ev.Percent, ev.Elapsed.Milliseconds())
		case model.UploadComplete:
			p.logger.Info("Upload completed")
			p.logger.Info("Download URL: %s", ev.URL)
			outcome = model.Uploaded(ev.URL)
		case model.UploadError:
			p.logger.Error("Upload failed, %s", ev.Message)
			outcome = model.Failed(ev.Message)
		}
	}
	return outcome
}

// Transfer is a single upload whose status is consumed as a sequence of events.
type Transfer struct {
	pipeline *Pipeline
	ctx      context.Context
	task     model.UploadTask
	started  atomic.Bool
}

// Transfer prepares an upload of artifact. Nothing happens until Events is ranged over.
func (p *Pipeline) Transfer(ctx context.Context, artifact model.CaptureArtifact) *Transfer {
	return &Transfer{
		pipeline: p,
		ctx:      ctx,
		task:     model.NewUploadTask(p.bucket, artifact),
	}
}

// Events runs the transfer lazily. It yields Init first, then zero or more
// Progress events, then exactly one Complete or Error. A local file that
// cannot be read still yields Init before the Error. The sequence can be
// consumed once; ranging again yields nothing.
func (t *Transfer) Events() iter.Seq[model.UploadEvent] {
	return func(yield func(model.UploadEvent) bool) {
		if !t.started.CompareAndSwap(false, true) {
			return
		}
		t.run(yield)
	}
}

func (t *Transfer) run(yield func(model.UploadEvent) bool) {
	p := t.pipeline
	base := model.UploadEvent{LocalFile: t.task.LocalPath, RemoteFile: t.task.RemotePath}

	fail := func(format string, args ...any) {
		ev := base
		ev.Phase = model.UploadError
		ev.Message = fmt.Sprintf(format, args...)
		yield(ev)
	}

	size, err := p.store.Stat(t.task.LocalPath)
	var file io.ReadCloser
	if err == nil {
		file, err = p.store.Open(t.task.LocalPath)
	}
	if err == nil {
		defer file.Close()
	}

	first := base
	first.Phase = model.UploadInit
	first.Size = size
	if !yield(first) {
		return
	}
	if err != nil {
		fail("local file unavailable: %v", err)
		return
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if p.timeout > 0 {
		ctx, cancel = context.WithTimeout(t.ctx, p.timeout)
	} else {
		ctx, cancel = context.WithCancel(t.ctx)
	}
	defer cancel()

	start := p.now()
	stopped := false
	last := -1
	body := &progressReader{r: file, onRead: func(sent int64) {
		if stopped {
			return
		}
		pct := percent(sent, size)
		if pct == last {
			return
		}
		last = pct
		ev := base
		ev.Phase = model.UploadProgress
		ev.Size = size
		ev.Percent = pct
		ev.Elapsed = p.now().Sub(start)
		if !yield(ev) {
			stopped = true
			cancel()
		}
	}}

	url, err := p.client.Upload(ctx, t.task, body)
	if stopped {
		return
	}
	if err != nil {
		fail("%v", err)
		return
	}

	done := base
	done.Phase = model.UploadComplete
	done.Size = size
	done.Percent = 100
	done.Elapsed = p.now().Sub(start)
	done.URL = url
	yield(done)
}

func percent(sent, size int64) int {
	if size <= 0 {
		return 100
	}
	pct := int(sent * 100 / size)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// progressReader reports the running byte count after every read.
type progressReader struct {
	r      io.Reader
	sent   int64
	onRead func(sent int64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.sent += int64(n)
		r.onRead(r.sent)
	}
	return n, err
}
