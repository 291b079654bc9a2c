package dedup

import (
	"context"
	"fmt"
	"io"

	"dedupserver/dedup"
	"dedupserver/importer"
	dedupdomain "dedupserver/internal/domain/dedup"
	"dedupserver/internal/infrastructure/workers"
	"dedupserver/normalization"
)

// UseCase представляет use case для поиска дублей
// Координирует импорт файлов, сессии, фоновые запуски и правила
type UseCase struct {
	dedupService dedupdomain.Service
}

// NewUseCase создает новый use case для поиска дублей
func NewUseCase(dedupService dedupdomain.Service) *UseCase {
	return &UseCase{dedupService: dedupService}
}

// CreateSession создает сессию из уже разобранных записей
func (uc *UseCase) CreateSession(ctx context.Context, records []*normalization.RawRecord, mapping normalization.FieldMapping) (*dedupdomain.SessionInfo, error) {
	info, err := uc.dedupService.CreateSession(ctx, dedupdomain.CreateSessionRequest{
		Records: records,
		Mapping: mapping,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return info, nil
}

// ImportSession разбирает загруженный файл и создает из него сессию
func (uc *UseCase) ImportSession(ctx context.Context, r io.Reader, fileName string, mapping normalization.FieldMapping) (*dedupdomain.SessionInfo, error) {
	table, err := importer.Parse(r, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to import file: %w", err)
	}

	info, err := uc.dedupService.CreateSession(ctx, dedupdomain.CreateSessionRequest{
		Source:  fileName,
		Records: table.Records,
		Mapping: mapping,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return info, nil
}

// GetSession возвращает сводку по сессии
func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*dedupdomain.SessionInfo, error) {
	info, err := uc.dedupService.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return info, nil
}

// DeleteSession удаляет сессию
func (uc *UseCase) DeleteSession(ctx context.Context, sessionID string) error {
	if err := uc.dedupService.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// StartCluster запускает кластеризацию
func (uc *UseCase) StartCluster(ctx context.Context, sessionID string, blockingField string) (*workers.Run, error) {
	run, err := uc.dedupService.StartCluster(ctx, sessionID, dedupdomain.ClusterRequest{
		BlockingField: normalization.MappingField(blockingField),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start cluster run: %w", err)
	}
	return run, nil
}

// StartAudit запускает аудит
func (uc *UseCase) StartAudit(ctx context.Context, sessionID string) (*workers.Run, error) {
	run, err := uc.dedupService.StartAudit(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to start audit run: %w", err)
	}
	return run, nil
}

// StartLearn запускает вывод правила из пары записей
func (uc *UseCase) StartLearn(ctx context.Context, sessionID string, req dedupdomain.LearnRequest) (*workers.Run, error) {
	run, err := uc.dedupService.StartLearn(ctx, sessionID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to start learn run: %w", err)
	}
	return run, nil
}

// GetRun возвращает запуск
func (uc *UseCase) GetRun(ctx context.Context, runID string) (*workers.Run, error) {
	run, err := uc.dedupService.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// Compare возвращает разбор оценки пары записей
func (uc *UseCase) Compare(ctx context.Context, sessionID, recordA, recordB string) (*dedup.PairScore, error) {
	score, err := uc.dedupService.Compare(ctx, sessionID, recordA, recordB)
	if err != nil {
		return nil, fmt.Errorf("failed to compare records: %w", err)
	}
	return score, nil
}

// GetRuleSet возвращает текущий набор правил
func (uc *UseCase) GetRuleSet(ctx context.Context) (*dedup.RuleSet, error) {
	rules, err := uc.dedupService.GetRuleSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get rules: %w", err)
	}
	return rules, nil
}

// AppendRule сохраняет подтвержденное правило
func (uc *UseCase) AppendRule(ctx context.Context, rule dedup.Rule) (*dedup.Rule, error) {
	saved, err := uc.dedupService.AppendRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to append rule: %w", err)
	}
	return saved, nil
}
