package route

import (
	"net/http"
	"os"
	"path/filepath"

	"motioncam/internal/config"
	"motioncam/internal/handler"
	"motioncam/internal/logger"
	"motioncam/internal/middleware"
	"motioncam/internal/repository"
	"motioncam/internal/service/flash"
	"motioncam/internal/service/websocket"

	"github.com/go-chi/chi/v5"
)

// Deps are the services the HTTP surface reads from.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger
	Hub    *websocket.HubService
	Store  flash.Store
	Repo   repository.CaptureRepository
	Status handler.StatusSource
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the router with the authentication middleware.
func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.AuthMiddleware)

	// Static files
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	r.Get("/healthz", handler.HealthHandler(d.Status, d.Logger))

	r.Route("/api", func(api chi.Router) {
		api.Get("/status/stream", handler.StatusStreamHandler(d.Hub, d.Logger))
		if d.Repo != nil {
			api.Get("/captures", handler.GetCapturesHandler(d.Store, d.Repo, d.Logger))
		}
		api.Get("/captures/view", handler.ViewCaptureHandler(d.Store, d.Logger))
	})

	r.Route("/logs/{level}", func(logs chi.Router) {
		logs.Get("/", handler.ShowLogsHandler(d.Config))
		logs.Post("/clear", handler.ClearLogsHandler(d.Logger))
	})

	r.Route("/auth", func(auth chi.Router) {
		auth.Post("/login", handler.LoginHandler(d.Config, d.Logger))
		auth.Get("/logout", handler.LogoutHandler)
	})

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	r.NotFound(dynamicHTMLHandler)

	return r
}
