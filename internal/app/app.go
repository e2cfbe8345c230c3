package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"motioncam/internal/config"
	"motioncam/internal/logger"
	"motioncam/internal/model"
	"motioncam/internal/repository/sqlite"
	"motioncam/internal/route"
	"motioncam/internal/service/backlog"
	"motioncam/internal/service/camera"
	"motioncam/internal/service/clock"
	"motioncam/internal/service/display"
	"motioncam/internal/service/flash"
	"motioncam/internal/service/orchestrator"
	"motioncam/internal/service/retry"
	"motioncam/internal/service/sensor"
	"motioncam/internal/service/upload"
	"motioncam/internal/service/websocket"

	"github.com/google/uuid"
)

// Hardware builds the device-facing collaborators. Tests swap these out.
type Hardware struct {
	Sensor func(cfg *config.Config) (sensor.Sensor, error)
	Camera func(logger *logger.Logger) camera.Driver
	Cloud  func(ctx context.Context, cfg *config.Config, logger *logger.Logger) (upload.Client, error)
	Dial   func(ctx context.Context, network, addr string) (net.Conn, error)
	// Flash is optional; a nil Light means no flash LED.
	Flash func(cfg *config.Config) (camera.Light, error)
}

// DeviceHardware is the real sysfs GPIO, gocv camera and GCS uploader.
func DeviceHardware() Hardware {
	var dialer net.Dialer
	return Hardware{
		Sensor: func(cfg *config.Config) (sensor.Sensor, error) {
			s := sensor.NewGPIOSensor(cfg.GPIORoot, cfg.SensorPin, cfg.SensorActiveLow)
			if err := s.Export(context.Background(), 5*time.Second); err != nil {
				return nil, err
			}
			return s, nil
		},
		Camera: func(logger *logger.Logger) camera.Driver {
			return camera.NewGocvDriver(logger)
		},
		Cloud: func(ctx context.Context, cfg *config.Config, logger *logger.Logger) (upload.Client, error) {
			signer := &upload.URLSigner{
				AccessID:   cfg.SigningAccessID,
				PrivateKey: cfg.SigningPrivateKey,
				TTL:        cfg.SignedURLTTL,
			}
			return upload.NewGCSClient(ctx, cfg.Bucket, cfg.CredentialsFile, signer, logger.Named("gcs"))
		},
		Dial: dialer.DialContext,
		Flash: func(cfg *config.Config) (camera.Light, error) {
			if cfg.FlashLEDPin < 0 {
				return nil, nil
			}
			led := sensor.NewGPIOOutput(cfg.GPIORoot, cfg.FlashLEDPin)
			if err := led.Export(context.Background(), 5*time.Second); err != nil {
				return nil, err
			}
			return led, nil
		},
	}
}

type App struct {
	config   *config.Config
	logger   *logger.Logger
	hardware Hardware
	bootID   string

	hub      *websocket.HubService
	renderer *display.Renderer
	store    *flash.DirStore
	db       *sqlite.DB
	repo     *sqlite.CaptureRepository
	sensor   sensor.Sensor
	driver   camera.Driver
	storage  upload.Client
	cloud    upload.Client
	uploader *upload.Pipeline
	clock    *clock.SystemClock
	sweeper  *backlog.Sweeper
	orch     *orchestrator.Orchestrator
	server   *http.Server

	closeOnce sync.Once
}

func NewApp(cfg *config.Config, logger *logger.Logger, hw Hardware) *App {
	return &App{
		config:   cfg,
		logger:   logger,
		hardware: hw,
		bootID:   uuid.NewString(),
		hub:      websocket.NewHubService(logger.Named("hub")),
	}
}

// BootID identifies this run in the capture history.
func (a *App) BootID() string {
	return a.bootID
}

// Orchestrator is available after Boot.
func (a *App) Orchestrator() *orchestrator.Orchestrator {
	return a.orch
}

// Boot brings the device up in dependency order: display, flash, network,
// camera, cloud session, clock. Fatal steps return a model.Error with
// SeverityFatal; the rest degrade and log.
func (a *App) Boot(ctx context.Context) error {
	cfg := a.config
	a.logger.Info("Booting motion camera %s", a.bootID)

	go a.hub.Run()
	a.renderer = display.NewRenderer(display.NewHubPanel(a.hub), cfg.AnimationFrames, a.logger.Named("display"))
	a.renderer.Ready()

	a.store = flash.NewDirStore(cfg.StorageRoot)
	if err := a.store.Mount(cfg.FormatOnBoot); err != nil {
		a.logger.Error("An error has occurred while mounting flash storage: %v", err)
		return model.Fatal("boot", "flash mount failed", err)
	}
	a.logger.Info("Flash storage mounted at %s", a.store.Root())

	if err := a.openRecords(); err != nil {
		// History is a convenience; capture works without it.
		a.logger.Warning("Capture history disabled: %v", err)
	}

	networkUp := a.joinNetwork(ctx)

	s, err := a.hardware.Sensor(cfg)
	if err != nil {
		a.logger.Error("Motion sensor init failed: %v", err)
		return model.Fatal("boot", "motion sensor init failed", errors.Join(model.ErrSensorUnavailable, err))
	}
	a.sensor = s

	profile, err := camera.LoadProfile(cfg.CameraProfilePath)
	if err != nil {
		a.logger.Error("Camera profile: %v", err)
		return model.Fatal("boot", "camera profile invalid", err)
	}
	a.driver = a.hardware.Camera(a.logger.Named("camera"))
	if err := a.driver.Init(profile); err != nil {
		a.logger.Error("Camera init failed with error %v", err)
		return model.Fatal("boot", "camera init failed", err)
	}
	a.logger.Info("Camera ready (%d warm-up frames)", profile.WarmupFrames)
	capture := camera.NewPipeline(a.driver, a.store, profile.WarmupFrames, a.logger.Named("capture"))
	if a.hardware.Flash != nil {
		light, err := a.hardware.Flash(cfg)
		if err != nil {
			a.logger.Warning("Flash LED disabled: %v", err)
		} else if light != nil {
			capture.WithLight(light)
		}
	}

	a.cloud = a.connectCloud(ctx, networkUp)
	a.uploader = upload.NewPipeline(a.cloud, a.store, cfg.Bucket, cfg.UploadTimeout, a.logger.Named("upload"))

	a.clock = clock.NewSystemClock(cfg.TimeOffsetSeconds, cfg.ClockSyncTimeout)
	if err := a.clock.Sync(ctx); err != nil {
		a.logger.Warning("Time sync incomplete, capture names may be wrong: %v", err)
	}

	restarter := orchestrator.RestartFunc(func(cause error) {
		a.logger.Error("Restarting device: %v", cause)
	})
	a.orch = orchestrator.New(a.sensor, capture, a.uploader, a.renderer, a.clock, restarter, orchestrator.Options{
		BootID:                a.bootID,
		TickPeriod:            cfg.TickPeriod,
		ResetPause:            cfg.ResetPause,
		LatchOnPersistFailure: cfg.LatchOnPersistFailure,
	}, a.logger.Named("orchestrator"))

	if a.repo != nil {
		a.orch.WithRecords(a.repo)

		sweeper, err := backlog.NewSweeper(a.repo, a.uploader, a.store, a.bootID, cfg.BacklogSchedule, cfg.BacklogMaxAttempts, a.logger.Named("backlog"))
		if err != nil {
			a.logger.Warning("Upload backlog disabled: %v", err)
		} else {
			a.sweeper = sweeper.WithBatch(cfg.BacklogBatch)
			a.orch.WithBacklog(sweeper)
		}
	}

	a.logger.Info("Boot complete")
	return nil
}

func (a *App) openRecords() error {
	if err := os.MkdirAll(filepath.Dir(a.config.DatabasePath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(a.config.DatabasePath)
	if err != nil {
		return err
	}
	a.db = db
	a.repo = sqlite.NewCaptureRepository(db)
	return nil
}

// joinNetwork waits, bounded, until the upload endpoint is reachable.
func (a *App) joinNetwork(ctx context.Context) bool {
	if !a.config.UploadEnabled() {
		a.logger.Info("Network join skipped: uploads not configured")
		return false
	}

	a.logger.Info("Connecting to network (%s)", a.config.NetworkProbeAddr)
	err := retry.Until(ctx, a.config.NetworkJoinTimeout, time.Second, func() error {
		return a.probe(ctx)
	})
	if err != nil {
		a.logger.Warning("Network not reachable, uploads deferred: %v", err)
		return false
	}
	a.logger.Info("Network connected")
	return true
}

// probe dials the upload endpoint once. No probe address means nothing to check.
func (a *App) probe(ctx context.Context) error {
	addr := a.config.NetworkProbeAddr
	if addr == "" {
		return nil
	}
	conn, err := a.hardware.Dial(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// connectCloud sets up the storage session. Without a bucket every upload is
// skipped; otherwise the session keeps reconnecting in the background of
// Ready until sign-in succeeds.
func (a *App) connectCloud(ctx context.Context, networkUp bool) upload.Client {
	if !a.config.UploadEnabled() {
		return upload.Offline{}
	}

	session := upload.NewSession(a.reconnect, a.config.CloudRetryInterval, a.config.CloudRetryTimeout, a.logger.Named("session"))
	if !networkUp {
		return session
	}
	if err := session.Authenticate(ctx); err != nil {
		a.logger.Warning("Cloud sign-in failed, uploads will be skipped until it recovers: %v", err)
	}
	return session
}

// reconnect re-checks the network, creates the storage client on first use and signs in.
func (a *App) reconnect(ctx context.Context) (upload.Client, error) {
	if err := a.probe(ctx); err != nil {
		return nil, fmt.Errorf("network unreachable: %w", err)
	}
	if a.storage == nil {
		// the client outlives this attempt's deadline
		client, err := a.hardware.Cloud(context.WithoutCancel(ctx), a.config, a.logger)
		if err != nil {
			return nil, fmt.Errorf("cloud storage client: %w", err)
		}
		a.storage = client
	}
	return a.storage, a.storage.Authenticate(ctx)
}

// Run serves the HTTP surface and drives the orchestrator until ctx is done
// or a fatal failure needs a restart.
func (a *App) Run(ctx context.Context) error {
	if a.orch == nil {
		return errors.New("app not booted")
	}

	deps := route.Deps{
		Config: a.config,
		Logger: a.logger.Named("http"),
		Hub:    a.hub,
		Store:  a.store,
		Status: a.orch,
	}
	if a.repo != nil {
		deps.Repo = a.repo
	}
	router := route.SetupRoutes(deps)
	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info("URL: http://localhost:%d", a.config.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server: %v", err)
		}
	}()

	return a.orch.Run(ctx)
}

// Close releases hardware and stops background services.
func (a *App) Close() {
	a.closeOnce.Do(a.close)
}

func (a *App) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warning("HTTP shutdown: %v", err)
		}
		cancel()
	}
	if a.driver != nil {
		if err := a.driver.Close(); err != nil {
			a.logger.Warning("Camera close: %v", err)
		}
	}
	if closer, ok := a.cloud.(interface{ Close() error }); ok {
		closer.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	a.hub.Stop()
}
