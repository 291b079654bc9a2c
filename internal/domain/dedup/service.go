package dedup

import (
	"context"
	"time"

	"dedupserver/dedup"
	"dedupserver/internal/infrastructure/workers"
	"dedupserver/normalization"
	"dedupserver/normalization/algorithms"
	"dedupserver/quality"
)

// Service интерфейс бизнес-логики поиска дублей получателей помощи
type Service interface {
	// Сессии
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Фоновые запуски
	StartCluster(ctx context.Context, sessionID string, req ClusterRequest) (*workers.Run, error)
	StartAudit(ctx context.Context, sessionID string) (*workers.Run, error)
	StartLearn(ctx context.Context, sessionID string, req LearnRequest) (*workers.Run, error)
	GetRun(ctx context.Context, runID string) (*workers.Run, error)

	// Синхронное сравнение пары
	Compare(ctx context.Context, sessionID, recordA, recordB string) (*dedup.PairScore, error)

	// Правила
	GetRuleSet(ctx context.Context) (*dedup.RuleSet, error)
	AppendRule(ctx context.Context, rule dedup.Rule) (*dedup.Rule, error)
}

// RunExecutor исполнитель фоновых запусков
type RunExecutor interface {
	Start(kind string, task workers.Task) *workers.Run
	Get(id string) (*workers.Run, bool)
}

// Виды запусков
const (
	RunKindCluster = "cluster"
	RunKindAudit   = "audit"
	RunKindLearn   = "learn"
)

// Settings параметры сопоставления, общие для всех запусков
type Settings struct {
	Weights                 algorithms.AggregateWeights
	MatchThreshold          float64
	HighSimilarityThreshold float64
	HusbandVariantThreshold float64
	BlockingMinRecords      int
	OrderFreeExactLimit     int
}

// DefaultSettings настройки по умолчанию
func DefaultSettings() Settings {
	return Settings{
		Weights:                 algorithms.DefaultAggregateWeights(),
		MatchThreshold:          dedup.DefaultMatchThreshold,
		HighSimilarityThreshold: quality.DefaultHighSimilarityThreshold,
		HusbandVariantThreshold: quality.DefaultHusbandVariantThreshold,
		BlockingMinRecords:      dedup.DefaultBlockingMinRecords,
		OrderFreeExactLimit:     algorithms.DefaultOrderFreeExactLimit,
	}
}

// CreateSessionRequest загруженные записи и сопоставление колонок
type CreateSessionRequest struct {
	Source  string
	Records []*normalization.RawRecord
	Mapping normalization.FieldMapping
}

// SessionInfo сводка по сессии
type SessionInfo struct {
	ID               string                     `json:"session_id"`
	Source           string                     `json:"source,omitempty"`
	RecordCount      int                        `json:"record_count"`
	Mapping          normalization.FieldMapping `json:"mapping"`
	CreatedAt        time.Time                  `json:"created_at"`
	LastClusterRunID string                     `json:"last_cluster_run_id,omitempty"`
	LastAuditRunID   string                     `json:"last_audit_run_id,omitempty"`
}

// ClusterRequest параметры запуска кластеризации
type ClusterRequest struct {
	// BlockingField поле блокировки; пусто - сравниваются все пары
	BlockingField normalization.MappingField
}

// LearnRequest пара подтвержденных дублей и то, что в ней заметил оператор
type LearnRequest struct {
	RecordA string
	RecordB string
	Pattern dedup.ObservedPattern
}

// ClusterResult результат запуска кластеризации
type ClusterResult struct {
	Clusters []dedup.Cluster      `json:"clusters"`
	Summary  dedup.ClusterSummary `json:"summary"`
}

// AuditResult результат запуска аудита
type AuditResult struct {
	Findings []quality.AuditFinding `json:"findings"`
	Summary  quality.AuditSummary   `json:"summary"`
}
