package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"motioncam/internal/dto"
	"motioncam/internal/logger"
	"motioncam/internal/model"
	"motioncam/internal/repository"
	"motioncam/internal/service/flash"
)

// GetCapturesHandler returns a paginated list of capture records, optionally
// filtered by upload status.
func GetCapturesHandler(store flash.Store, repo repository.CaptureRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &model.CaptureFilter{
			Status: model.RecordStatus(q.Get("status")),
			BootID: q.Get("boot"),
			Limit:  limit,
			Offset: (page - 1) * limit,
		}

		records, err := repo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying captures from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := repo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting captures: %v", err)
			totalCount = len(records)
		}

		captures := make([]dto.CaptureInfo, 0, len(records))
		for _, rec := range records {
			captures = append(captures, dto.CaptureInfo{
				ID:          rec.ID,
				Name:        rec.Filename,
				Date:        rec.CapturedAt,
				TimeOfDay:   rec.CapturedAt,
				Size:        rec.FileSize,
				Status:      string(rec.Status),
				DownloadURL: rec.DownloadURL,
				Reason:      rec.Reason,
			})
		}

		data := dto.CapturesData{
			Captures:    captures,
			StorageRoot: store.Root(),
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// ViewCaptureHandler serves a single stored capture named by the "image" query parameter.
func ViewCaptureHandler(store flash.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image := r.URL.Query().Get("image")
		if image == "" {
			http.Error(w, "Image parameter is required", http.StatusBadRequest)
			return
		}

		file, err := store.Open("/" + image)
		if errors.Is(err, flash.ErrInvalidPath) {
			http.Error(w, "Invalid image name", http.StatusBadRequest)
			return
		}
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			logger.Error("Failed to open capture %s: %v", image, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer file.Close()

		w.Header().Set("Content-Type", model.ContentTypeJPEG)
		if _, err := io.Copy(w, file); err != nil {
			logger.Warning("Failed to send capture %s: %v", image, err)
		}
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
