package route

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"motioncam/internal/config"
	"motioncam/internal/dto"
	"motioncam/internal/logger"
	"motioncam/internal/service/flash"
)

type fixedStatus struct{}

func (fixedStatus) Status() dto.Health { return dto.Health{State: "idle"} }

func TestSetupRoutes(t *testing.T) {
	logDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(logDir, "warning.log"), []byte("warn\n"), 0644); err != nil {
		t.Fatal(err)
	}

	store := flash.NewDirStore(t.TempDir())
	if err := store.Mount(false); err != nil {
		t.Fatal(err)
	}

	h := SetupRoutes(Deps{
		Config: &config.Config{LogDirectory: logDir, Password: "pw"},
		Logger: logger.Nop(),
		Store:  store,
		Status: fixedStatus{},
	})

	tests := []struct {
		name   string
		method string
		path   string
		auth   bool
		code   int
	}{
		{"health", http.MethodGet, "/healthz", false, http.StatusOK},
		{"captures view unauthenticated", http.MethodGet, "/api/captures/view?image=x", false, http.StatusUnauthorized},
		{"captures view missing file", http.MethodGet, "/api/captures/view?image=x-img.jpg", true, http.StatusNotFound},
		{"warning log", http.MethodGet, "/logs/warning", true, http.StatusOK},
		{"clear needs POST", http.MethodGet, "/logs/warning/clear", true, http.StatusMethodNotAllowed},
		{"unknown page", http.MethodGet, "/nowhere", true, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth {
				req.AddCookie(&http.Cookie{Name: "authenticated", Value: "true"})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
		})
	}
}
