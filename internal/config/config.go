package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config конфигурация сервера
type Config struct {
	// Сервер
	Port string `json:"port"`

	// База правил и снимков сессий
	RulesDatabasePath string `json:"rules_database_path"`

	// Connection pooling
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`

	// Логирование
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Сопоставление
	Matching *MatchingConfig `json:"matching"`

	// Фоновые прогоны
	RunEventsBufferSize int           `json:"run_events_buffer_size"`
	RunRetention        time.Duration `json:"run_retention"`

	// Кэш сессий
	SessionCacheTTL      time.Duration `json:"session_cache_ttl"`
	SessionSnapshotTTL   time.Duration `json:"session_snapshot_ttl"`
	CacheCleanupInterval time.Duration `json:"cache_cleanup_interval"`

	// Ограничения API
	RateLimitPerSec float64 `json:"rate_limit_per_sec"`
	RateLimitBurst  int     `json:"rate_limit_burst"`
	MaxUploadSizeMB int     `json:"max_upload_size_mb"`
}

// MatchingConfig пороги и веса сравнения записей
type MatchingConfig struct {
	MatchThreshold          float64 `json:"match_threshold"`
	HighSimilarityThreshold float64 `json:"high_similarity_threshold"`
	HusbandVariantThreshold float64 `json:"husband_variant_threshold"`

	WeightFamily    float64 `json:"weight_family"`
	WeightOrderFree float64 `json:"weight_order_free"`
	WeightPhone     float64 `json:"weight_phone"`
	WeightChildren  float64 `json:"weight_children"`

	BlockingMinRecords  int `json:"blocking_min_records"`
	OrderFreeExactLimit int `json:"order_free_exact_limit"`
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	config := &Config{
		// Сервер
		Port: getEnv("SERVER_PORT", "9999"),

		// База данных
		RulesDatabasePath: getEnv("RULES_DATABASE_PATH", "dedup.db"),

		// Connection pooling
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		// Логирование
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		LogFile:  os.Getenv("LOG_FILE"),

		Matching: LoadMatchingConfig(),

		RunEventsBufferSize: getEnvInt("RUN_EVENTS_BUFFER_SIZE", 64),
		RunRetention:        getEnvDuration("RUN_RETENTION", time.Hour),

		SessionCacheTTL:      getEnvDuration("SESSION_CACHE_TTL", 30*time.Minute),
		SessionSnapshotTTL:   getEnvDuration("SESSION_SNAPSHOT_TTL", 7*24*time.Hour),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),

		RateLimitPerSec: getEnvFloat("RATE_LIMIT_PER_SEC", 5),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 10),
		MaxUploadSizeMB: getEnvInt("MAX_UPLOAD_SIZE_MB", 32),
	}

	// Валидация
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// LoadMatchingConfig загружает пороги и веса сравнения
func LoadMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		MatchThreshold:          getEnvFloat("MATCH_THRESHOLD", 0.85),
		HighSimilarityThreshold: getEnvFloat("HIGH_SIMILARITY_THRESHOLD", 0.75),
		HusbandVariantThreshold: getEnvFloat("HUSBAND_VARIANT_THRESHOLD", 0.92),

		WeightFamily:    getEnvFloat("WEIGHT_FAMILY", 0.30),
		WeightOrderFree: getEnvFloat("WEIGHT_ORDER_FREE", 0.40),
		WeightPhone:     getEnvFloat("WEIGHT_PHONE", 0.20),
		WeightChildren:  getEnvFloat("WEIGHT_CHILDREN", 0.10),

		BlockingMinRecords:  getEnvInt("BLOCKING_MIN_RECORDS", 1500),
		OrderFreeExactLimit: getEnvInt("ORDER_FREE_EXACT_LIMIT", 8),
	}
}

// MaxUploadSize лимит размера загружаемого файла в байтах
func (c *Config) MaxUploadSize() int64 {
	return int64(c.MaxUploadSizeMB) << 20
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64 или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как Duration или возвращает значение по умолчанию
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
