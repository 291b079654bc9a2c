package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Validate проверяет корректность конфигурации и возвращает все найденные проблемы разом
func (c *Config) Validate() error {
	var errors []string

	// Валидация порта
	if c.Port == "" {
		errors = append(errors, "port is required")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid port: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("port must be between 1 and 65535, got %d", port))
		}
	}

	if c.RulesDatabasePath == "" {
		errors = append(errors, "rules database path is required")
	}

	// Валидация connection pooling
	if c.MaxOpenConns < 1 {
		errors = append(errors, "max open connections must be at least 1")
	}
	if c.MaxIdleConns < 1 {
		errors = append(errors, "max idle connections must be at least 1")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		errors = append(errors, "max idle connections cannot be greater than max open connections")
	}
	if c.ConnMaxLifetime < time.Second {
		errors = append(errors, "connection max lifetime must be at least 1 second")
	}

	// Валидация уровня логирования
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if c.Matching == nil {
		errors = append(errors, "matching config is required")
	} else {
		errors = append(errors, c.Matching.validate()...)
	}

	if c.RunEventsBufferSize < 1 {
		errors = append(errors, "run events buffer size must be at least 1")
	}
	if c.RunRetention <= 0 {
		errors = append(errors, "run retention must be positive")
	}
	if c.SessionCacheTTL <= 0 {
		errors = append(errors, "session cache TTL must be positive")
	}
	if c.SessionSnapshotTTL < c.SessionCacheTTL {
		errors = append(errors, "session snapshot TTL cannot be shorter than session cache TTL")
	}
	if c.CacheCleanupInterval <= 0 {
		errors = append(errors, "cache cleanup interval must be positive")
	}

	if c.RateLimitPerSec <= 0 {
		errors = append(errors, "rate limit per second must be positive")
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, "rate limit burst must be at least 1")
	}
	if c.MaxUploadSizeMB < 1 {
		errors = append(errors, "max upload size must be at least 1 MB")
	}

	if len(errors) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func (m *MatchingConfig) validate() []string {
	var errors []string

	thresholds := []struct {
		name  string
		value float64
	}{
		{"match threshold", m.MatchThreshold},
		{"high similarity threshold", m.HighSimilarityThreshold},
		{"husband variant threshold", m.HusbandVariantThreshold},
	}
	for _, th := range thresholds {
		if th.value <= 0 || th.value > 1 {
			errors = append(errors, fmt.Sprintf("%s must be in (0, 1], got %g", th.name, th.value))
		}
	}

	weights := []float64{m.WeightFamily, m.WeightOrderFree, m.WeightPhone, m.WeightChildren}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			errors = append(errors, fmt.Sprintf("weights must not be negative, got %g", w))
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		errors = append(errors, fmt.Sprintf("weights must sum to 1, got %g", sum))
	}

	if m.BlockingMinRecords < 1 {
		errors = append(errors, "blocking min records must be at least 1")
	}
	if m.OrderFreeExactLimit < 1 {
		errors = append(errors, "order-free exact limit must be at least 1")
	}

	return errors
}
