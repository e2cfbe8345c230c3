package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"motioncam/internal/model"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRecord(boot, stamp string) *model.CaptureRecord {
	at := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	return model.NewCaptureRecord(boot, model.NewCaptureArtifact(stamp, 2048, at))
}

func TestDatabase_Connection(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestCaptureRepository_InsertAndGet(t *testing.T) {
	repo := NewCaptureRepository(newTestDB(t))

	rec := testRecord("boot-a", "12:30:45")
	id, err := repo.Insert(rec)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id == 0 || rec.ID != id {
		t.Fatalf("expected id to be assigned, got %d / %d", id, rec.ID)
	}

	got, err := repo.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if got.Filename != "12:30:45-img.jpg" {
		t.Errorf("Filename = %q", got.Filename)
	}
	if got.LocalPath != "/12:30:45-img.jpg" || got.RemotePath != "data/12:30:45-img.jpg" {
		t.Errorf("paths = %q, %q", got.LocalPath, got.RemotePath)
	}
	if got.Status != model.RecordPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if got.FileSize != 2048 {
		t.Errorf("FileSize = %d", got.FileSize)
	}
}

func TestCaptureRepository_GetByIDMissing(t *testing.T) {
	repo := NewCaptureRepository(newTestDB(t))

	got, err := repo.GetByID(42)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing record, got %+v", got)
	}
}

func TestCaptureRepository_GetByLocalPathReturnsNewest(t *testing.T) {
	repo := NewCaptureRepository(newTestDB(t))

	if _, err := repo.Insert(testRecord("boot-a", "08:00:00")); err != nil {
		t.Fatal(err)
	}
	second, err := repo.Insert(testRecord("boot-b", "08:00:00"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByLocalPath("/08:00:00-img.jpg")
	if err != nil {
		t.Fatalf("GetByLocalPath failed: %v", err)
	}
	if got == nil || got.ID != second {
		t.Fatalf("expected newest record %d, got %+v", second, got)
	}
}

func TestCaptureRepository_MarkOutcome(t *testing.T) {
	repo := NewCaptureRepository(newTestDB(t))

	id, err := repo.Insert(testRecord("boot-a", "10:00:00"))
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.MarkOutcome(id, model.UploadOutcome{Kind: model.OutcomeSkipped, Reason: "uploader not ready"}); err != nil {
		t.Fatalf("MarkOutcome failed: %v", err)
	}
	got, _ := repo.GetByID(id)
	if got.Status != model.RecordSkipped || got.Attempts != 0 {
		t.Errorf("after skip: status=%q attempts=%d", got.Status, got.Attempts)
	}

	if err := repo.MarkOutcome(id, model.UploadOutcome{Kind: model.OutcomeUploaded, URL: "https://example/x"}); err != nil {
		t.Fatalf("MarkOutcome failed: %v", err)
	}
	got, _ = repo.GetByID(id)
	if got.Status != model.RecordUploaded || got.Attempts != 1 || got.DownloadURL != "https://example/x" {
		t.Errorf("after upload: %+v", got)
	}

	if err := repo.MarkOutcome(id+100, model.UploadOutcome{Kind: model.OutcomeFailed}); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestCaptureRepository_FilterAndCount(t *testing.T) {
	repo := NewCaptureRepository(newTestDB(t))

	stamps := []string{"01:00:00", "02:00:00", "03:00:00", "04:00:00"}
	for i, s := range stamps {
		id, err := repo.Insert(testRecord("boot-a", s))
		if err != nil {
			t.Fatal(err)
		}
		if i%2 == 0 {
			if err := repo.MarkOutcome(id, model.UploadOutcome{Kind: model.OutcomeUploaded}); err != nil {
				t.Fatal(err)
			}
		}
	}

	all, err := repo.GetAll(&model.CaptureFilter{})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 records, got %d", len(all))
	}
	if all[0].Filename != "04:00:00-img.jpg" {
		t.Errorf("expected newest first, got %q", all[0].Filename)
	}

	uploaded, err := repo.GetTotalCount(&model.CaptureFilter{Status: model.RecordUploaded})
	if err != nil {
		t.Fatal(err)
	}
	if uploaded != 2 {
		t.Errorf("uploaded count = %d, want 2", uploaded)
	}

	page, err := repo.GetAll(&model.CaptureFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].Filename != "02:00:00-img.jpg" {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestCaptureRepository_Backlog(t *testing.T) {
	repo := NewCaptureRepository(newTestDB(t))

	oldPending, _ := repo.Insert(testRecord("boot-old", "05:00:00"))
	oldUploaded, _ := repo.Insert(testRecord("boot-old", "05:00:01"))
	oldExhausted, _ := repo.Insert(testRecord("boot-old", "05:00:02"))
	if _, err := repo.Insert(testRecord("boot-now", "05:00:03")); err != nil {
		t.Fatal(err)
	}

	if err := repo.MarkOutcome(oldUploaded, model.UploadOutcome{Kind: model.OutcomeUploaded}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := repo.MarkOutcome(oldExhausted, model.UploadOutcome{Kind: model.OutcomeFailed, Reason: "boom"}); err != nil {
			t.Fatal(err)
		}
	}

	backlog, err := repo.GetBacklog("boot-now", 3)
	if err != nil {
		t.Fatalf("GetBacklog failed: %v", err)
	}
	if len(backlog) != 1 || backlog[0].ID != oldPending {
		t.Fatalf("expected only record %d in backlog, got %+v", oldPending, backlog)
	}
}

func TestCaptureRepository_Delete(t *testing.T) {
	repo := NewCaptureRepository(newTestDB(t))

	id, _ := repo.Insert(testRecord("boot-a", "06:00:00"))
	if err := repo.Delete(id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, err := repo.GetByID(id)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("expected record to be gone")
	}
}
