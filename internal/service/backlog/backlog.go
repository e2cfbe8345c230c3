package backlog

import (
	"context"
	"fmt"
	"time"

	"motioncam/internal/logger"
	"motioncam/internal/model"
	"motioncam/internal/service/flash"

	"github.com/robfig/cron/v3"
)

// Repository is the slice of the capture store the sweeper needs.
type Repository interface {
	GetBacklog(currentBoot string, maxAttempts int) ([]model.CaptureRecord, error)
	MarkOutcome(id int64, outcome model.UploadOutcome) error
}

// Uploader sends one stored artifact to the bucket.
type Uploader interface {
	Ready() bool
	Upload(ctx context.Context, artifact model.CaptureArtifact) model.UploadOutcome
}

// DefaultBatch is how many records one Drain call uploads at most.
const DefaultBatch = 1

// Sweeper re-uploads captures that earlier boots stored but never got into
// the bucket. It runs once after boot and then on an optional cron schedule.
// Captures from the current boot are left alone: a failed live upload is not
// retried. A pass is spread over several Drain calls so the caller's loop is
// never held up for more than a batch of uploads.
type Sweeper struct {
	repo        Repository
	uploader    Uploader
	store       flash.Store
	bootID      string
	maxAttempts int
	batch       int
	schedule    cron.Schedule
	logger      *logger.Logger
	now         func() time.Time

	swept   bool
	inPass  bool
	visited map[int64]bool
	next    time.Time
}

// NewSweeper builds a sweeper. An empty cron expression disables the periodic schedule.
func NewSweeper(repo Repository, uploader Uploader, store flash.Store, bootID, expr string, maxAttempts int, logger *logger.Logger) (*Sweeper, error) {
	s := &Sweeper{
		repo:        repo,
		uploader:    uploader,
		store:       store,
		bootID:      bootID,
		maxAttempts: maxAttempts,
		batch:       DefaultBatch,
		logger:      logger,
		now:         time.Now,
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = 1
	}

	if expr != "" {
		schedule, err := cron.ParseStandard(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid backlog schedule %q: %w", expr, err)
		}
		s.schedule = schedule
	}
	return s, nil
}

// WithBatch sets how many records a single Drain uploads. Values below one keep the default.
func (s *Sweeper) WithBatch(n int) *Sweeper {
	if n > 0 {
		s.batch = n
	}
	return s
}

// Next is when the next scheduled pass falls due. Zero before the first pass
// completes or when no schedule is set.
func (s *Sweeper) Next() time.Time {
	return s.next
}

// Due reports whether Drain has work to do now: the boot pass, an unfinished
// pass, or a scheduled one.
func (s *Sweeper) Due(now time.Time) bool {
	if !s.swept || s.inPass {
		return true
	}
	if s.schedule == nil {
		return false
	}
	return !now.Before(s.next)
}

// Drain uploads at most one batch of the current pass and returns how many
// made it. Each record is tried once per pass. While the uploader is not
// ready nothing is consumed, so the pass stays due.
func (s *Sweeper) Drain(ctx context.Context) int {
	if !s.uploader.Ready() {
		s.logger.Debug("Backlog sweep waiting: uploader not ready")
		return 0
	}
	if !s.inPass {
		s.inPass = true
		s.visited = make(map[int64]bool)
	}

	records, err := s.repo.GetBacklog(s.bootID, s.maxAttempts)
	if err != nil {
		s.logger.Error("Failed to load upload backlog: %v", err)
		s.finish()
		return 0
	}

	var pending []model.CaptureRecord
	for _, rec := range records {
		if !s.visited[rec.ID] {
			pending = append(pending, rec)
		}
	}
	if len(pending) == 0 {
		s.finish()
		return 0
	}
	if len(s.visited) == 0 {
		s.logger.Info("Upload backlog: %d capture(s) from earlier boots", len(pending))
	}

	n := min(s.batch, len(pending))
	uploaded := 0
	for _, rec := range pending[:n] {
		if ctx.Err() != nil {
			return uploaded
		}

		outcome := s.sweep(ctx, rec)
		if outcome.Kind == model.OutcomeSkipped {
			// uploader dropped its session; retry this record once it is back
			return uploaded
		}
		s.visited[rec.ID] = true
		if err := s.repo.MarkOutcome(rec.ID, outcome); err != nil {
			s.logger.Warning("Failed to update capture record %d: %v", rec.ID, err)
		}
		if outcome.Kind == model.OutcomeUploaded {
			uploaded++
		}
	}

	if n == len(pending) {
		s.finish()
	}
	return uploaded
}

func (s *Sweeper) finish() {
	s.inPass = false
	s.swept = true
	s.visited = nil
	if s.schedule != nil {
		s.next = s.schedule.Next(s.now())
	}
}

func (s *Sweeper) sweep(ctx context.Context, rec model.CaptureRecord) model.UploadOutcome {
	if _, err := s.store.Stat(rec.LocalPath); err != nil {
		s.logger.Warning("Backlog capture %s is gone from flash: %v", rec.LocalPath, err)
		return model.Failed(fmt.Sprintf("local file missing: %v", err))
	}
	return s.uploader.Upload(ctx, rec.Artifact())
}
