package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Port:                 "9999",
		RulesDatabasePath:    "dedup.db",
		MaxOpenConns:         25,
		MaxIdleConns:         5,
		ConnMaxLifetime:      5 * time.Minute,
		LogLevel:             "INFO",
		Matching:             LoadMatchingConfig(),
		RunEventsBufferSize:  64,
		RunRetention:         time.Hour,
		SessionCacheTTL:      30 * time.Minute,
		SessionSnapshotTTL:   24 * time.Hour,
		CacheCleanupInterval: 5 * time.Minute,
		RateLimitPerSec:      5,
		RateLimitBurst:       10,
		MaxUploadSizeMB:      32,
	}
}

func TestConfigLogLevelValidation(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		wantError bool
	}{
		{"Valid DEBUG", "DEBUG", false},
		{"Valid INFO", "INFO", false},
		{"Valid WARN", "WARN", false},
		{"Valid ERROR", "ERROR", false},
		{"Valid lowercase debug", "debug", false},
		{"Invalid value", "INVALID", true},
		{"Empty string", "", false},
		{"Mixed case", "DeBuG", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.LogLevel = tt.logLevel

			err := cfg.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want 9999", cfg.Port)
	}
	if cfg.Matching.MatchThreshold != 0.85 {
		t.Errorf("MatchThreshold = %g, want 0.85", cfg.Matching.MatchThreshold)
	}
	if cfg.Matching.BlockingMinRecords != 1500 {
		t.Errorf("BlockingMinRecords = %d, want 1500", cfg.Matching.BlockingMinRecords)
	}
	if cfg.MaxUploadSize() != 32<<20 {
		t.Errorf("MaxUploadSize = %d", cfg.MaxUploadSize())
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("MATCH_THRESHOLD", "0.9")
	t.Setenv("SESSION_CACHE_TTL", "10m")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Port != "8081" {
		t.Errorf("Port = %q, want 8081", cfg.Port)
	}
	if cfg.Matching.MatchThreshold != 0.9 {
		t.Errorf("MatchThreshold = %g, want 0.9", cfg.Matching.MatchThreshold)
	}
	if cfg.SessionCacheTTL != 10*time.Minute {
		t.Errorf("SessionCacheTTL = %v, want 10m", cfg.SessionCacheTTL)
	}
	if cfg.RateLimitBurst != 10 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.RateLimitBurst)
	}
}

func TestLoadConfigInvalidWeights(t *testing.T) {
	t.Setenv("WEIGHT_FAMILY", "0.9")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("weights not summing to 1 should be rejected")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "70000"
	cfg.MaxIdleConns = 50
	cfg.Matching.MatchThreshold = 1.5
	cfg.RateLimitBurst = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, part := range []string{
		"port must be between",
		"max idle connections cannot be greater",
		"match threshold must be in",
		"rate limit burst",
	} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("error %q does not mention %q", err, part)
		}
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("run finished", "run_id", "r-1")

	if strings.Contains(stderr.String(), "hidden") {
		t.Error("debug message should be filtered")
	}
	if !strings.Contains(stderr.String(), "run_id=r-1") {
		t.Errorf("stderr = %q", stderr.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("file output is not JSON: %v", err)
	}
	if entry["msg"] != "run finished" || entry["run_id"] != "r-1" {
		t.Errorf("file entry = %v", entry)
	}
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("warn")
	if err != nil || level != slog.LevelWarn {
		t.Errorf("ParseLogLevel(warn) = %v, %v", level, err)
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("verbose should be rejected")
	}
}
