package container

import (
	"fmt"

	"dedupserver/internal/api/handlers/common"
	deduphandler "dedupserver/internal/api/handlers/dedup"
	dedupapp "dedupserver/internal/application/dedup"
	dedupdomain "dedupserver/internal/domain/dedup"
)

// initDedupComponents инициализирует компоненты dedup domain
func (c *Container) initDedupComponents() error {
	// 1. Domain service поверх кэша сессий, репозитория правил и исполнителя запусков
	dedupDomainService := dedupdomain.NewService(
		c.SessionCache,
		c.RuleRepository,
		c.Runner,
		c.DedupSettings(),
		c.Logger.With("component", "dedup"),
	)

	// 2. Application use case
	dedupUseCase := dedupapp.NewUseCase(dedupDomainService)

	// 3. HTTP handler
	dedupHandler := deduphandler.NewHandler(
		common.NewBaseHandlerImpl(),
		dedupUseCase,
		c.RulesDB,
		c.Config.MaxUploadSize(),
	)

	c.DedupHandlerV2 = dedupHandler
	c.DedupUseCase = dedupUseCase
	c.DedupDomainService = dedupDomainService

	return nil
}

// GetDedupHandler возвращает dedup handler из контейнера
func (c *Container) GetDedupHandler() (*deduphandler.Handler, error) {
	if c.DedupHandlerV2 == nil {
		return nil, fmt.Errorf("dedup handler not initialized")
	}

	handler, ok := c.DedupHandlerV2.(*deduphandler.Handler)
	if !ok {
		return nil, fmt.Errorf("invalid dedup handler type")
	}

	return handler, nil
}

// GetDedupUseCase возвращает dedup use case из контейнера
func (c *Container) GetDedupUseCase() (*dedupapp.UseCase, error) {
	useCase, ok := c.DedupUseCase.(*dedupapp.UseCase)
	if !ok || useCase == nil {
		return nil, fmt.Errorf("dedup use case not initialized")
	}
	return useCase, nil
}
