package backlog

import (
	"context"
	"testing"
	"time"

	"motioncam/internal/logger"
	"motioncam/internal/model"
	"motioncam/internal/service/flash"
)

type memRepo struct {
	records  []model.CaptureRecord
	outcomes map[int64]model.UploadOutcome
}

func (r *memRepo) GetBacklog(currentBoot string, maxAttempts int) ([]model.CaptureRecord, error) {
	var out []model.CaptureRecord
	for _, rec := range r.records {
		if rec.BootID != currentBoot && rec.Status != model.RecordUploaded && rec.Attempts < maxAttempts {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memRepo) MarkOutcome(id int64, o model.UploadOutcome) error {
	if r.outcomes == nil {
		r.outcomes = make(map[int64]model.UploadOutcome)
	}
	r.outcomes[id] = o
	return nil
}

type fakeUploader struct {
	ready bool
	sent  []string
}

func (u *fakeUploader) Ready() bool { return u.ready }

func (u *fakeUploader) Upload(_ context.Context, a model.CaptureArtifact) model.UploadOutcome {
	u.sent = append(u.sent, a.RemotePath)
	return model.Uploaded("https://storage.googleapis.com/bucket/" + a.RemotePath)
}

func newStore(t *testing.T, names ...string) *flash.DirStore {
	t.Helper()
	s := flash.NewDirStore(t.TempDir())
	if err := s.Mount(false); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	for _, n := range names {
		w, err := s.Create(n)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		w.Write([]byte{0xFF, 0xD8})
		w.Close()
	}
	return s
}

func record(id int64, boot, stamp string) model.CaptureRecord {
	rec := model.NewCaptureRecord(boot, model.NewCaptureArtifact(stamp, 2, time.Now()))
	rec.ID = id
	return *rec
}

func TestSweeper_SkipsCurrentBoot(t *testing.T) {
	repo := &memRepo{records: []model.CaptureRecord{
		record(1, "old", "01:00:00"),
		record(2, "now", "02:00:00"),
	}}
	store := newStore(t, "/01:00:00-img.jpg", "/02:00:00-img.jpg")
	up := &fakeUploader{ready: true}

	s, err := NewSweeper(repo, up, store, "now", "", 3, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if n := s.Drain(context.Background()); n != 1 {
		t.Fatalf("uploaded %d, want 1", n)
	}
	if len(up.sent) != 1 || up.sent[0] != "data/01:00:00-img.jpg" {
		t.Errorf("unexpected uploads: %v", up.sent)
	}
	if _, ok := repo.outcomes[2]; ok {
		t.Error("current boot record must not be touched")
	}
}

func TestSweeper_MissingFileFails(t *testing.T) {
	repo := &memRepo{records: []model.CaptureRecord{record(7, "old", "03:00:00")}}
	up := &fakeUploader{ready: true}

	s, err := NewSweeper(repo, up, newStore(t), "now", "", 3, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if n := s.Drain(context.Background()); n != 0 {
		t.Errorf("uploaded %d, want 0", n)
	}
	if repo.outcomes[7].Kind != model.OutcomeFailed {
		t.Errorf("outcome = %+v, want failed", repo.outcomes[7])
	}
	if len(up.sent) != 0 {
		t.Error("nothing should be sent for a missing file")
	}
}

func TestSweeper_NotReadyDoesNothing(t *testing.T) {
	repo := &memRepo{records: []model.CaptureRecord{record(1, "old", "01:00:00")}}
	up := &fakeUploader{ready: false}

	s, _ := NewSweeper(repo, up, newStore(t, "/01:00:00-img.jpg"), "now", "", 3, logger.Nop())
	s.Drain(context.Background())

	if len(repo.outcomes) != 0 || len(up.sent) != 0 {
		t.Error("sweep should be a no-op while the uploader is not ready")
	}
	if !s.Due(time.Now()) {
		t.Error("boot pass should stay due until the uploader is ready")
	}

	up.ready = true
	if n := s.Drain(context.Background()); n != 1 {
		t.Errorf("uploaded %d once ready, want 1", n)
	}
}

func TestSweeper_OneUploadPerDrain(t *testing.T) {
	repo := &memRepo{records: []model.CaptureRecord{
		record(1, "old", "01:00:00"),
		record(2, "old", "02:00:00"),
		record(3, "old", "03:00:00"),
	}}
	store := newStore(t, "/01:00:00-img.jpg", "/02:00:00-img.jpg", "/03:00:00-img.jpg")
	up := &fakeUploader{ready: true}

	s, err := NewSweeper(repo, up, store, "now", "", 3, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}

	for tick := 1; tick <= 3; tick++ {
		if !s.Due(time.Now()) {
			t.Fatalf("tick %d: sweep should still be due", tick)
		}
		if n := s.Drain(context.Background()); n != 1 {
			t.Errorf("tick %d: uploaded %d, want 1", tick, n)
		}
		if len(up.sent) != tick {
			t.Fatalf("tick %d: %d uploads so far, want %d", tick, len(up.sent), tick)
		}
	}

	if s.Due(time.Now()) {
		t.Error("pass should be finished once every record was tried")
	}
}

func TestSweeper_WithBatch(t *testing.T) {
	repo := &memRepo{records: []model.CaptureRecord{
		record(1, "old", "01:00:00"),
		record(2, "old", "02:00:00"),
		record(3, "old", "03:00:00"),
	}}
	store := newStore(t, "/01:00:00-img.jpg", "/02:00:00-img.jpg", "/03:00:00-img.jpg")
	up := &fakeUploader{ready: true}

	s, _ := NewSweeper(repo, up, store, "now", "", 3, logger.Nop())
	s.WithBatch(2)

	if n := s.Drain(context.Background()); n != 2 {
		t.Errorf("first drain uploaded %d, want 2", n)
	}
	if n := s.Drain(context.Background()); n != 1 {
		t.Errorf("second drain uploaded %d, want 1", n)
	}
	if s.Due(time.Now()) {
		t.Error("pass should be finished")
	}
}

func TestSweeper_Due(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("once without schedule", func(t *testing.T) {
		s, _ := NewSweeper(&memRepo{}, &fakeUploader{ready: true}, newStore(t), "now", "", 3, logger.Nop())
		s.now = func() time.Time { return base }

		if !s.Due(base) {
			t.Fatal("first sweep should be due at boot")
		}
		s.Drain(context.Background())
		if s.Due(base.Add(24 * time.Hour)) {
			t.Error("no further sweeps without a schedule")
		}
	})

	t.Run("hourly schedule", func(t *testing.T) {
		s, err := NewSweeper(&memRepo{}, &fakeUploader{ready: true}, newStore(t), "now", "0 * * * *", 3, logger.Nop())
		if err != nil {
			t.Fatal(err)
		}
		s.now = func() time.Time { return base.Add(5 * time.Minute) }

		s.Drain(context.Background())
		if want := base.Add(time.Hour); !s.Next().Equal(want) {
			t.Fatalf("Next = %s, want %s", s.Next(), want)
		}
		if s.Due(base.Add(30 * time.Minute)) {
			t.Error("should not be due before the next slot")
		}
		if !s.Due(base.Add(time.Hour)) {
			t.Error("should be due at the next slot")
		}
	})
}

func TestNewSweeper_BadSchedule(t *testing.T) {
	if _, err := NewSweeper(&memRepo{}, &fakeUploader{}, newStore(t), "now", "not a cron", 3, logger.Nop()); err == nil {
		t.Error("expected error for invalid schedule")
	}
}
