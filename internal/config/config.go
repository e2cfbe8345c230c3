package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	Password string

	// Sensor
	GPIORoot        string
	SensorPin       int
	SensorActiveLow bool
	FlashLEDPin     int

	// Flash store
	StorageRoot  string
	FormatOnBoot bool
	DatabasePath string

	// Camera
	CameraProfilePath string

	// Network and cloud
	NetworkProbeAddr   string
	NetworkJoinTimeout time.Duration
	Bucket             string
	CredentialsFile    string
	SigningAccessID    string
	SigningPrivateKey  string
	SignedURLTTL       time.Duration
	UploadTimeout      time.Duration
	CloudRetryInterval time.Duration
	CloudRetryTimeout  time.Duration

	// Clock
	TimeOffsetSeconds int
	ClockSyncTimeout  time.Duration

	// Loop
	TickPeriod            time.Duration
	ResetPause            time.Duration
	AnimationFrames       int
	LatchOnPersistFailure bool

	// Backlog
	BacklogSchedule    string
	BacklogMaxAttempts int
	BacklogBatch       int

	LogDirectory string
	LogLevel     string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnvAsInt("PORT", 8080),
		Password:              getEnv("PASSWORD", "motioncam"),
		GPIORoot:              getEnv("GPIO_ROOT", "/sys/class/gpio"),
		SensorPin:             getEnvAsInt("PIR_SENSOR_PIN", 13),
		SensorActiveLow:       getEnvAsBool("PIR_ACTIVE_LOW", false),
		FlashLEDPin:           getEnvAsInt("FLASH_LED_PIN", -1),
		StorageRoot:           getEnv("STORAGE_ROOT", filepath.Join(".", "flash")),
		FormatOnBoot:          getEnvAsBool("STORAGE_FORMAT_ON_BOOT", false),
		DatabasePath:          getEnv("DB_PATH", filepath.Join(".", "data", "captures.db")),
		CameraProfilePath:     getEnv("CAMERA_PROFILE", ""),
		NetworkProbeAddr:      getEnv("NETWORK_PROBE_ADDR", "storage.googleapis.com:443"),
		NetworkJoinTimeout:    getEnvAsDuration("NETWORK_JOIN_TIMEOUT", 60*time.Second),
		Bucket:                getEnv("STORAGE_BUCKET_ID", ""),
		CredentialsFile:       getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		SigningAccessID:       getEnv("GCS_SIGNING_EMAIL", ""),
		SigningPrivateKey:     getEnv("GCS_SIGNING_PRIVATE_KEY", ""),
		SignedURLTTL:          getEnvAsDuration("GCS_SIGNED_URL_TTL", 7*24*time.Hour),
		UploadTimeout:         getEnvAsDuration("UPLOAD_TIMEOUT", 2*time.Minute),
		CloudRetryInterval:    getEnvAsDuration("CLOUD_RETRY_INTERVAL", 30*time.Second),
		CloudRetryTimeout:     getEnvAsDuration("CLOUD_RETRY_TIMEOUT", 10*time.Second),
		TimeOffsetSeconds:     getEnvAsInt("TIME_OFFSET_SECONDS", 28800), // GMT+8
		ClockSyncTimeout:      getEnvAsDuration("CLOCK_SYNC_TIMEOUT", 30*time.Second),
		TickPeriod:            getEnvAsDuration("TICK_PERIOD", time.Second),
		ResetPause:            getEnvAsDuration("RESET_PAUSE", time.Second),
		AnimationFrames:       getEnvAsInt("ANIMATION_FRAMES", 4),
		LatchOnPersistFailure: getEnvAsBool("LATCH_ON_PERSIST_FAILURE", true),
		BacklogSchedule:       getEnv("BACKLOG_SCHEDULE", ""),
		BacklogMaxAttempts:    getEnvAsInt("BACKLOG_MAX_ATTEMPTS", 3),
		BacklogBatch:          getEnvAsInt("BACKLOG_BATCH", 1),
		LogDirectory:          getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}
}

// UploadEnabled reports whether a bucket has been configured at all.
func (c *Config) UploadEnabled() bool {
	return c.Bucket != ""
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("250ms", "2m") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
