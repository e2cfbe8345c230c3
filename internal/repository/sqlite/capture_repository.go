package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"motioncam/internal/model"
)

const captureColumns = `id, boot_id, filename, local_path, remote_path, filesize, captured_at,
	status, download_url, reason, attempts, updated_at`

// CaptureRepository implements repository.CaptureRepository for SQLite.
type CaptureRepository struct {
	db  *DB
	now func() time.Time
}

// NewCaptureRepository creates a new SQLite capture repository.
func NewCaptureRepository(db *DB) *CaptureRepository {
	return &CaptureRepository{db: db, now: time.Now}
}

// Insert adds a new capture record to the database.
func (r *CaptureRepository) Insert(rec *model.CaptureRecord) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	status := rec.Status
	if status == "" {
		status = model.RecordPending
	}
	now := r.now()

	result, err := r.db.Conn().Exec(`
		INSERT INTO captures (boot_id, filename, local_path, remote_path, filesize, captured_at,
			status, download_url, reason, attempts, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.BootID, rec.Filename, rec.LocalPath, rec.RemotePath, rec.FileSize, rec.CapturedAt,
		string(status), rec.DownloadURL, rec.Reason, rec.Attempts, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert capture: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read capture id: %w", err)
	}
	rec.ID = id
	rec.Status = status
	rec.UpdatedAt = now
	return id, nil
}

// GetByID retrieves a capture by its ID.
func (r *CaptureRepository) GetByID(id int64) (*model.CaptureRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+captureColumns+` FROM captures WHERE id = ?`, id)
	rec, err := scanCapture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return rec, nil
}

// GetByLocalPath retrieves the most recent capture stored under path.
// Stamps only carry the time of day, so older rows may share a path.
func (r *CaptureRepository) GetByLocalPath(path string) (*model.CaptureRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT `+captureColumns+` FROM captures
		WHERE local_path = ? ORDER BY id DESC LIMIT 1
	`, path)
	rec, err := scanCapture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return rec, nil
}

// GetAll retrieves captures based on filter criteria, newest first.
func (r *CaptureRepository) GetAll(filter *model.CaptureFilter) ([]model.CaptureRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `SELECT ` + captureColumns + ` FROM captures WHERE 1=1` + where + ` ORDER BY id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	return r.query(query, args...)
}

// GetTotalCount returns the total count of captures matching the filter.
func (r *CaptureRepository) GetTotalCount(filter *model.CaptureFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM captures WHERE 1=1`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count captures: %w", err)
	}
	return count, nil
}

// GetBacklog returns captures from earlier boots that never reached the
// bucket and still have attempts left, oldest first.
func (r *CaptureRepository) GetBacklog(currentBoot string, maxAttempts int) ([]model.CaptureRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.query(`
		SELECT `+captureColumns+` FROM captures
		WHERE boot_id != ? AND status != ? AND attempts < ?
		ORDER BY id ASC
	`, currentBoot, string(model.RecordUploaded), maxAttempts)
}

// MarkOutcome stores the result of an upload attempt.
func (r *CaptureRepository) MarkOutcome(id int64, outcome model.UploadOutcome) error {
	r.db.Lock()
	defer r.db.Unlock()

	// Skipped never touched the network, so it does not use up an attempt.
	attempt := 1
	if outcome.Kind == model.OutcomeSkipped {
		attempt = 0
	}

	result, err := r.db.Conn().Exec(`
		UPDATE captures
		SET status = ?, download_url = ?, reason = ?, attempts = attempts + ?, updated_at = ?
		WHERE id = ?
	`, string(model.StatusFor(outcome)), outcome.URL, outcome.Reason, attempt, r.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update capture: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update capture: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("capture %d not found", id)
	}
	return nil
}

// Delete removes a capture by its ID.
func (r *CaptureRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM captures WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete capture: %w", err)
	}
	return nil
}

func (r *CaptureRepository) query(query string, args ...interface{}) ([]model.CaptureRecord, error) {
	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	var records []model.CaptureRecord
	for rows.Next() {
		rec, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func filterClause(filter *model.CaptureFilter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var clause string
	args := []interface{}{}

	if filter.Status != "" {
		clause += " AND status = ?"
		args = append(args, string(filter.Status))
	}

	if filter.BootID != "" {
		clause += " AND boot_id = ?"
		args = append(args, filter.BootID)
	}

	return clause, args
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCapture(s scanner) (*model.CaptureRecord, error) {
	var rec model.CaptureRecord
	var status string
	err := s.Scan(&rec.ID, &rec.BootID, &rec.Filename, &rec.LocalPath, &rec.RemotePath, &rec.FileSize,
		&rec.CapturedAt, &status, &rec.DownloadURL, &rec.Reason, &rec.Attempts, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Status = model.RecordStatus(status)
	return &rec, nil
}
