package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed cameras.yaml
var camerasYAML []byte

type Config struct {
	Store    StoreConfig
	Detector DetectorConfig
	Images   ImagesConfig
	Sweep    SweepConfig
	Stream   StreamConfig
	Cameras  []CameraConfig
}

type StoreConfig struct {
	Backend      string // json, sqlite, postgres, mariadb or memory (default json)
	Path         string // file path for the json and sqlite backends
	DatabaseURL  string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
	MariaDBDSN   string // MariaDB DSN (e.g., tracker:tracker@tcp(mariadb:3306)/tracker)
}

type DetectorConfig struct {
	URL     string        // defaults to http://localhost:8000
	Timeout time.Duration // defaults to 30s
}

type ImagesConfig struct {
	Root string // directory holding images/tracked, defaults to static
}

type SweepConfig struct {
	Interval time.Duration // 0 disables the background sweeper
}

type StreamConfig struct {
	FPS int // defaults to 30
}

// CameraConfig describes one live capture source.
type CameraConfig struct {
	ID          string        `yaml:"id"`
	Device      string        `yaml:"device"`                 // device index ("0") or capture URL/path
	IdleTimeout time.Duration `yaml:"idle_timeout,omitempty"` // 0 means the camera default
}

type camerasFile struct {
	Cameras []CameraConfig `yaml:"cameras"`
}

// DefaultStorePath returns the store location used when STORE_PATH is unset.
func DefaultStorePath(backend string) string {
	if backend == "sqlite" {
		return "data/persons.db"
	}
	return "data/database.json"
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads a Go duration ("30s", "5m"). Negative or invalid values
// fall back to the default; "0" is kept.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// ParseCameras decodes a cameras YAML document.
func ParseCameras(data []byte) ([]CameraConfig, error) {
	var doc camerasFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse cameras: %w", err)
	}
	seen := make(map[string]bool, len(doc.Cameras))
	for i, cam := range doc.Cameras {
		if cam.ID == "" {
			return nil, fmt.Errorf("camera %d: id is required", i)
		}
		if seen[cam.ID] {
			return nil, fmt.Errorf("camera %s: duplicate id", cam.ID)
		}
		seen[cam.ID] = true
	}
	return doc.Cameras, nil
}

func Load() (*Config, error) {
	camerasDoc := camerasYAML
	if path := os.Getenv("CAMERAS_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read cameras file: %w", err)
		}
		camerasDoc = data
	}
	cameras, err := ParseCameras(camerasDoc)
	if err != nil {
		return nil, err
	}

	backend := envString("STORE_BACKEND", "json")

	return &Config{
		Store: StoreConfig{
			Backend:      backend,
			Path:         envString("STORE_PATH", DefaultStorePath(backend)),
			DatabaseURL:  os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
			MariaDBDSN:   os.Getenv("MARIADB_DSN"),
		},
		Detector: DetectorConfig{
			URL:     envString("DETECTOR_URL", "http://localhost:8000"),
			Timeout: envDuration("DETECTOR_TIMEOUT", 30*time.Second),
		},
		Images: ImagesConfig{
			Root: envString("IMAGE_ROOT", "static"),
		},
		Sweep: SweepConfig{
			Interval: envDuration("SWEEP_INTERVAL", 0),
		},
		Stream: StreamConfig{
			FPS: envInt("STREAM_FPS", 30),
		},
		Cameras: cameras,
	}, nil
}

// Camera returns the configured camera with the given ID.
func (c *Config) Camera(id string) (CameraConfig, bool) {
	for _, cam := range c.Cameras {
		if cam.ID == id {
			return cam, true
		}
	}
	return CameraConfig{}, false
}
