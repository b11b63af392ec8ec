package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Extractor  ExtractorConfig
	Database   DatabaseConfig
	Directory  DirectoryConfig
	Thresholds ThresholdsConfig
}

type ExtractorConfig struct {
	URL   string // face descriptor server base URL (e.g., http://localhost:8000)
	Dim   int    // descriptor vector length (defaults to 512)
	Model string // model name, for reference only
}

type DatabaseConfig struct {
	URL               string // PostgreSQL connection URL
	MaxOpenConns      int    // Maximum open connections (default 25)
	MaxIdleConns      int    // Maximum idle connections (default 5)
	IdentifyIndexPath string // Path to persist the identify HNSW index (optional, rebuilt on startup if empty)
}

// DirectoryConfig points at the HR application's MariaDB instance.
// The directory is read-only from this service's point of view.
type DirectoryConfig struct {
	DSN string // MariaDB DSN (e.g., hr:hr@tcp(mariadb:3306)/hrapp)
}

// ThresholdsConfig holds the verification decision constants. Defaults come
// from the embedded thresholds.yaml; individual values can be overridden via
// environment variables.
type ThresholdsConfig struct {
	Face struct {
		MatchThreshold float64 `yaml:"match_threshold"`
		MinConfidence  float64 `yaml:"min_confidence"`
	} `yaml:"face"`
	Location struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
		MaxAgeSeconds  int `yaml:"max_age_seconds"`
	} `yaml:"location"`
	Capture struct {
		PollIntervalMs    int `yaml:"poll_interval_ms"`
		SettleDelayMs     int `yaml:"settle_delay_ms"`
		SessionTTLMinutes int `yaml:"session_ttl_minutes"`
	} `yaml:"capture"`
}

// LocationTimeout returns the device geolocation acquisition timeout.
func (t *ThresholdsConfig) LocationTimeout() time.Duration {
	return time.Duration(t.Location.TimeoutSeconds) * time.Second
}

// LocationMaxAge returns the oldest cached device position still accepted.
func (t *ThresholdsConfig) LocationMaxAge() time.Duration {
	return time.Duration(t.Location.MaxAgeSeconds) * time.Second
}

// PollInterval returns the face presence poll cadence.
func (t *ThresholdsConfig) PollInterval() time.Duration {
	return time.Duration(t.Capture.PollIntervalMs) * time.Millisecond
}

// SettleDelay returns the pause applied after a camera restart between angles.
func (t *ThresholdsConfig) SettleDelay() time.Duration {
	return time.Duration(t.Capture.SettleDelayMs) * time.Millisecond
}

// SessionTTL returns how long an idle capture session is kept alive.
func (t *ThresholdsConfig) SessionTTL() time.Duration {
	return time.Duration(t.Capture.SessionTTLMinutes) * time.Minute
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

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var thresholds ThresholdsConfig
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	// Env overrides on top of the embedded defaults.
	thresholds.Face.MatchThreshold = envFloat("FACE_MATCH_THRESHOLD", thresholds.Face.MatchThreshold)
	thresholds.Face.MinConfidence = envFloat("FACE_MIN_CONFIDENCE", thresholds.Face.MinConfidence)
	thresholds.Location.TimeoutSeconds = envInt("LOCATION_TIMEOUT_SECONDS", thresholds.Location.TimeoutSeconds)
	thresholds.Location.MaxAgeSeconds = envInt("LOCATION_MAX_AGE_SECONDS", thresholds.Location.MaxAgeSeconds)
	thresholds.Capture.PollIntervalMs = envInt("CAPTURE_POLL_INTERVAL_MS", thresholds.Capture.PollIntervalMs)
	thresholds.Capture.SettleDelayMs = envInt("CAPTURE_SETTLE_DELAY_MS", thresholds.Capture.SettleDelayMs)
	thresholds.Capture.SessionTTLMinutes = envInt("CAPTURE_SESSION_TTL_MINUTES", thresholds.Capture.SessionTTLMinutes)

	return &Config{
		Extractor: ExtractorConfig{
			URL:   os.Getenv("EXTRACTOR_URL"),
			Dim:   envInt("EXTRACTOR_DIM", 512),
			Model: os.Getenv("EXTRACTOR_MODEL"),
		},
		Database: DatabaseConfig{
			URL:               os.Getenv("DATABASE_URL"),
			MaxOpenConns:      envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:      envInt("DATABASE_MAX_IDLE_CONNS", 5),
			IdentifyIndexPath: os.Getenv("IDENTIFY_INDEX_PATH"),
		},
		Directory: DirectoryConfig{
			DSN: os.Getenv("DIRECTORY_DATABASE_URL"),
		},
		Thresholds: thresholds,
	}
}
