package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Thresholds.Face.MatchThreshold != 0.6 {
		t.Errorf("expected match threshold 0.6, got %v", cfg.Thresholds.Face.MatchThreshold)
	}
	if cfg.Thresholds.Face.MinConfidence != 70 {
		t.Errorf("expected min confidence 70, got %v", cfg.Thresholds.Face.MinConfidence)
	}
	if cfg.Thresholds.LocationTimeout() != 30*time.Second {
		t.Errorf("expected location timeout 30s, got %v", cfg.Thresholds.LocationTimeout())
	}
	if cfg.Thresholds.LocationMaxAge() != 60*time.Second {
		t.Errorf("expected location max age 60s, got %v", cfg.Thresholds.LocationMaxAge())
	}
	if cfg.Thresholds.PollInterval() != 500*time.Millisecond {
		t.Errorf("expected poll interval 500ms, got %v", cfg.Thresholds.PollInterval())
	}
	if cfg.Extractor.Dim != 512 {
		t.Errorf("expected default extractor dim 512, got %d", cfg.Extractor.Dim)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FACE_MATCH_THRESHOLD", "0.45")
	t.Setenv("FACE_MIN_CONFIDENCE", "80")
	t.Setenv("CAPTURE_POLL_INTERVAL_MS", "250")
	t.Setenv("EXTRACTOR_URL", "http://localhost:8000")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "50")

	cfg := Load()

	if cfg.Thresholds.Face.MatchThreshold != 0.45 {
		t.Errorf("expected match threshold 0.45, got %v", cfg.Thresholds.Face.MatchThreshold)
	}
	if cfg.Thresholds.Face.MinConfidence != 80 {
		t.Errorf("expected min confidence 80, got %v", cfg.Thresholds.Face.MinConfidence)
	}
	if cfg.Thresholds.PollInterval() != 250*time.Millisecond {
		t.Errorf("expected poll interval 250ms, got %v", cfg.Thresholds.PollInterval())
	}
	if cfg.Extractor.URL != "http://localhost:8000" {
		t.Errorf("expected extractor URL 'http://localhost:8000', got '%s'", cfg.Extractor.URL)
	}
	if cfg.Database.MaxOpenConns != 50 {
		t.Errorf("expected max open conns 50, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoadInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("FACE_MATCH_THRESHOLD", "not-a-number")
	t.Setenv("CAPTURE_POLL_INTERVAL_MS", "-100")

	cfg := Load()

	if cfg.Thresholds.Face.MatchThreshold != 0.6 {
		t.Errorf("invalid env should fall back to 0.6, got %v", cfg.Thresholds.Face.MatchThreshold)
	}
	if cfg.Thresholds.PollInterval() != 500*time.Millisecond {
		t.Errorf("negative env should fall back to 500ms, got %v", cfg.Thresholds.PollInterval())
	}
}
