package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dedupserver/dedup"
	"dedupserver/internal/domain/repositories"
	"dedupserver/internal/infrastructure/workers"
	"dedupserver/normalization"
	"dedupserver/quality"
)

// service реализация domain service для dedup
type service struct {
	sessions repositories.SessionStore
	rules    repositories.RuleRepository
	runner   RunExecutor
	settings Settings
	logger   *slog.Logger

	comparator *dedup.Comparator

	mu          sync.Mutex
	sessionRuns map[string][]*workers.Run
}

// NewService создает новый domain service для dedup
func NewService(sessions repositories.SessionStore, rules repositories.RuleRepository, runner RunExecutor, settings Settings, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		sessions:    sessions,
		rules:       rules,
		runner:      runner,
		settings:    settings,
		logger:      logger,
		comparator:  dedup.NewComparator(settings.OrderFreeExactLimit),
		sessionRuns: make(map[string][]*workers.Run),
	}
}

// CreateSession проверяет сопоставление колонок и сохраняет снимок сессии
func (s *service) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error) {
	if len(req.Records) == 0 {
		return nil, ErrEmptySession
	}
	if err := req.Mapping.Validate(req.Records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	seen := make(map[string]struct{}, len(req.Records))
	for i, rec := range req.Records {
		if rec == nil || strings.TrimSpace(rec.InternalID) == "" {
			return nil, fmt.Errorf("%w: record #%d has no internal id", ErrInvalidMapping, i+1)
		}
		if _, dup := seen[rec.InternalID]; dup {
			return nil, fmt.Errorf("%w: duplicate internal id %s", ErrInvalidMapping, rec.InternalID)
		}
		seen[rec.InternalID] = struct{}{}
	}

	snapshot := &repositories.SessionSnapshot{
		ID:        uuid.New().String(),
		Source:    req.Source,
		Records:   req.Records,
		Mapping:   req.Mapping,
		CreatedAt: time.Now(),
	}
	if err := s.sessions.Put(ctx, snapshot.ID, snapshot); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("Session created", "session_id", snapshot.ID, "records", len(snapshot.Records), "source", snapshot.Source)
	return toSessionInfo(snapshot), nil
}

// GetSession возвращает сводку по сессии
func (s *service) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	snapshot, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return toSessionInfo(snapshot), nil
}

// DeleteSession удаляет сессию и отменяет ее незавершенные запуски
func (s *service) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.loadSession(ctx, sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	runs := s.sessionRuns[sessionID]
	delete(s.sessionRuns, sessionID)
	s.mu.Unlock()

	for _, run := range runs {
		run.Cancel()
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.logger.Info("Session deleted", "session_id", sessionID, "cancelled_runs", len(runs))
	return nil
}

// StartCluster запускает кластеризацию записей сессии
func (s *service) StartCluster(ctx context.Context, sessionID string, req ClusterRequest) (*workers.Run, error) {
	if req.BlockingField != "" && !isMappingField(req.BlockingField) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBlockingField, req.BlockingField)
	}

	snapshot, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rules, err := s.GetRuleSet(ctx)
	if err != nil {
		return nil, err
	}

	opts := dedup.ClusterOptions{
		Blocking:   dedup.BlockingOptions{Field: req.BlockingField, MinRecords: s.settings.BlockingMinRecords},
		Comparator: s.comparator,
	}
	records, mapping := snapshot.Records, snapshot.Mapping

	run := s.runner.Start(RunKindCluster, func(ctx context.Context, report func(float64)) (any, error) {
		prepared, err := normalization.Preprocess(records, mapping)
		if err != nil {
			return nil, err
		}
		opts.Progress = report

		clusters, err := dedup.BuildClusters(ctx, prepared, rules, opts)
		if err != nil {
			return nil, err
		}
		return &ClusterResult{Clusters: clusters, Summary: dedup.Summarize(clusters)}, nil
	})

	s.trackRun(ctx, snapshot, run)
	return run, nil
}

// StartAudit запускает аудит записей сессии.
// Аудиту нужны сопоставленные имя мужа и номер удостоверения.
func (s *service) StartAudit(ctx context.Context, sessionID string) (*workers.Run, error) {
	snapshot, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rules, err := s.GetRuleSet(ctx)
	if err != nil {
		return nil, err
	}

	opts := quality.AuditOptions{
		Blocking:                dedup.BlockingOptions{Field: normalization.FieldVillage, MinRecords: s.settings.BlockingMinRecords},
		Comparator:              s.comparator,
		HusbandVariantThreshold: s.settings.HusbandVariantThreshold,
		HighSimilarityThreshold: s.settings.HighSimilarityThreshold,
	}
	if snapshot.Mapping.Village == "" {
		opts.Blocking.Field = ""
	}
	records, mapping := snapshot.Records, snapshot.Mapping

	run := s.runner.Start(RunKindAudit, func(ctx context.Context, report func(float64)) (any, error) {
		prepared, err := normalization.Preprocess(records, mapping, normalization.FieldHusbandName, normalization.FieldNationalID)
		if err != nil {
			return nil, err
		}
		opts.Progress = report

		findings, err := quality.Audit(ctx, prepared, rules, opts)
		if err != nil {
			return nil, err
		}
		return &AuditResult{Findings: findings, Summary: quality.Summarize(findings)}, nil
	})

	s.trackRun(ctx, snapshot, run)
	return run, nil
}

// StartLearn запускает вывод правила из пары подтвержденных дублей.
// Правило не сохраняется: его нужно явно добавить через AppendRule.
func (s *service) StartLearn(ctx context.Context, sessionID string, req LearnRequest) (*workers.Run, error) {
	snapshot, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	a, ok := snapshot.Record(req.RecordA)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, req.RecordA)
	}
	b, ok := snapshot.Record(req.RecordB)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, req.RecordB)
	}

	rules, err := s.GetRuleSet(ctx)
	if err != nil {
		return nil, err
	}
	mapping := snapshot.Mapping
	learner := dedup.NewRuleLearner(s.comparator)

	run := s.runner.Start(RunKindLearn, func(ctx context.Context, report func(float64)) (any, error) {
		report(10)
		rule, err := learner.Learn(
			normalization.PreprocessRecord(a, mapping),
			normalization.PreprocessRecord(b, mapping),
			req.Pattern,
			rules,
		)
		if err != nil {
			return nil, err
		}
		return rule, nil
	})

	s.trackRun(ctx, snapshot, run)
	return run, nil
}

// GetRun возвращает запуск по ID
func (s *service) GetRun(ctx context.Context, runID string) (*workers.Run, error) {
	run, ok := s.runner.Get(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

// Compare сравнивает две записи сессии с текущим набором правил
func (s *service) Compare(ctx context.Context, sessionID, recordA, recordB string) (*dedup.PairScore, error) {
	snapshot, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	a, ok := snapshot.Record(recordA)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, recordA)
	}
	b, ok := snapshot.Record(recordB)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, recordB)
	}

	rules, err := s.GetRuleSet(ctx)
	if err != nil {
		return nil, err
	}

	score := s.comparator.Compare(
		normalization.PreprocessRecord(a, snapshot.Mapping),
		normalization.PreprocessRecord(b, snapshot.Mapping),
		rules,
	)
	return &score, nil
}

// GetRuleSet собирает набор правил: веса и порог из настроек, правила из хранилища
func (s *service) GetRuleSet(ctx context.Context) (*dedup.RuleSet, error) {
	stored, err := s.rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	rules := &dedup.RuleSet{
		Weights:        s.settings.Weights,
		MatchThreshold: s.settings.MatchThreshold,
		Rules:          stored,
	}
	if rules.Rules == nil {
		rules.Rules = []dedup.Rule{}
	}
	return rules, nil
}

// AppendRule проверяет и сохраняет подтвержденное правило в конец набора
func (s *service) AppendRule(ctx context.Context, rule dedup.Rule) (*dedup.Rule, error) {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.GeneratedAt.IsZero() {
		rule.GeneratedAt = time.Now()
	}
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	if err := s.rules.Append(ctx, &rule); err != nil {
		if errors.Is(err, repositories.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", ErrRuleExists, rule.ID)
		}
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	s.logger.Info("Rule appended", "rule_id", rule.ID, "name", rule.Name, "clauses", len(rule.Clauses))
	return &rule, nil
}

func (s *service) loadSession(ctx context.Context, sessionID string) (*repositories.SessionSnapshot, error) {
	snapshot, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return snapshot, nil
}

// trackRun запоминает запуск для отмены при удалении сессии и обновляет снимок
func (s *service) trackRun(ctx context.Context, snapshot *repositories.SessionSnapshot, run *workers.Run) {
	s.mu.Lock()
	var runs []*workers.Run
	for _, r := range s.sessionRuns[snapshot.ID] {
		if r.Status().State == workers.StateRunning {
			runs = append(runs, r)
		}
	}
	s.sessionRuns[snapshot.ID] = append(runs, run)
	s.mu.Unlock()

	var next *repositories.SessionSnapshot
	switch run.Kind {
	case RunKindCluster:
		next = snapshot.WithRunIDs(run.ID, "")
	case RunKindAudit:
		next = snapshot.WithRunIDs("", run.ID)
	default:
		return
	}
	if err := s.sessions.Put(ctx, snapshot.ID, next); err != nil {
		s.logger.Warn("Failed to update session run ids", "session_id", snapshot.ID, "run_id", run.ID, "error", err)
	}
}

func toSessionInfo(snapshot *repositories.SessionSnapshot) *SessionInfo {
	return &SessionInfo{
		ID:               snapshot.ID,
		Source:           snapshot.Source,
		RecordCount:      len(snapshot.Records),
		Mapping:          snapshot.Mapping,
		CreatedAt:        snapshot.CreatedAt,
		LastClusterRunID: snapshot.LastClusterRunID,
		LastAuditRunID:   snapshot.LastAuditRunID,
	}
}

func isMappingField(field normalization.MappingField) bool {
	for _, f := range normalization.AllMappingFields {
		if f == field {
			return true
		}
	}
	return false
}
