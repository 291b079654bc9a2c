package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dedupserver/database"
	"dedupserver/internal/config"
	dedupdomain "dedupserver/internal/domain/dedup"
	"dedupserver/internal/domain/repositories"
	"dedupserver/internal/infrastructure/cache"
	"dedupserver/internal/infrastructure/persistence"
	"dedupserver/internal/infrastructure/workers"
	"dedupserver/normalization/algorithms"
)

// Container контейнер зависимостей
// Управляет жизненным циклом всех компонентов приложения
type Container struct {
	mu sync.RWMutex

	// Конфигурация
	Config *config.Config
	Logger *slog.Logger

	// База правил и снимков сессий
	RulesDB *database.RulesDB

	// Репозитории
	RuleRepository    repositories.RuleRepository
	SessionRepository repositories.SessionRepository

	// Кэш сессий перед таблицей снимков
	SessionCache *cache.SessionCache

	// Исполнитель фоновых запусков
	Runner *workers.Runner

	// Dedup domain (service -> use case -> handler)
	DedupHandlerV2     any // *dedup.Handler из internal/api/handlers/dedup
	DedupUseCase       any // *dedupapp.UseCase
	DedupDomainService dedupdomain.Service

	maintenanceCancel context.CancelFunc
	maintenanceDone   chan struct{}
	closed            bool
}

// NewContainer создает контейнер и инициализирует все компоненты
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{Config: cfg, Logger: logger}

	if err := c.initDatabases(); err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	c.RuleRepository = persistence.NewRuleRepository(c.RulesDB)
	c.SessionRepository = persistence.NewSessionRepository(c.RulesDB)
	c.SessionCache = cache.NewSessionCache(c.SessionRepository, cfg.SessionCacheTTL)
	c.Runner = workers.NewRunner(cfg.RunEventsBufferSize, cfg.RunRetention, logger.With("component", "runner"))

	if err := c.initDedupComponents(); err != nil {
		c.RulesDB.Close()
		return nil, fmt.Errorf("failed to initialize dedup components: %w", err)
	}

	logger.Info("Container initialized",
		"rules_db", cfg.RulesDatabasePath,
		"session_cache_ttl", cfg.SessionCacheTTL,
		"run_events_buffer", cfg.RunEventsBufferSize,
	)
	return c, nil
}

func (c *Container) initDatabases() error {
	db, err := database.NewRulesDBWithConfig(c.Config.RulesDatabasePath, database.DBConfig{
		MaxOpenConns:    c.Config.MaxOpenConns,
		MaxIdleConns:    c.Config.MaxIdleConns,
		ConnMaxLifetime: c.Config.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	c.RulesDB = db
	return nil
}

// DedupSettings пороги и веса сравнения из конфигурации
func (c *Container) DedupSettings() dedupdomain.Settings {
	settings := dedupdomain.DefaultSettings()
	m := c.Config.Matching
	if m == nil {
		return settings
	}

	settings.Weights = algorithms.AggregateWeights{
		Family:    m.WeightFamily,
		OrderFree: m.WeightOrderFree,
		Phone:     m.WeightPhone,
		Children:  m.WeightChildren,
	}
	settings.MatchThreshold = m.MatchThreshold
	settings.HighSimilarityThreshold = m.HighSimilarityThreshold
	settings.HusbandVariantThreshold = m.HusbandVariantThreshold
	settings.BlockingMinRecords = m.BlockingMinRecords
	settings.OrderFreeExactLimit = m.OrderFreeExactLimit
	return settings
}

// StartMaintenance периодически чистит кэш сессий и удаляет старые снимки
func (c *Container) StartMaintenance(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maintenanceCancel != nil || c.closed {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	c.maintenanceCancel = cancel
	c.maintenanceDone = make(chan struct{})

	go func() {
		defer close(c.maintenanceDone)
		ticker := time.NewTicker(c.Config.CacheCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.runMaintenance(ctx)
			}
		}
	}()
}

func (c *Container) runMaintenance(ctx context.Context) {
	evicted := c.SessionCache.Cleanup()

	cutoff := time.Now().Add(-c.Config.SessionSnapshotTTL)
	pruned, err := c.SessionRepository.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		c.Logger.Warn("Failed to prune session snapshots", "error", err)
		return
	}

	if evicted > 0 || pruned > 0 {
		c.Logger.Info("Session maintenance", "cache_evicted", evicted, "snapshots_pruned", pruned)
	}
}

// Close останавливает фоновые запуски и закрывает базу
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel, done := c.maintenanceCancel, c.maintenanceDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	var errs []error
	if err := c.Runner.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop runs: %w", err))
	}
	if err := c.RulesDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close rules database: %w", err))
	}
	return errors.Join(errs...)
}
