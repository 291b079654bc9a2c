package repositories

import (
	"time"

	"dedupserver/normalization"
)

// SessionSnapshot неизменяемый снимок сессии: загруженные записи и сопоставление колонок.
// Запуски получают копию снимка и не меняют его.
type SessionSnapshot struct {
	ID               string                     `json:"id"`
	Source           string                     `json:"source,omitempty"` // имя загруженного файла
	Records          []*normalization.RawRecord `json:"records"`
	Mapping          normalization.FieldMapping `json:"mapping"`
	CreatedAt        time.Time                  `json:"created_at"`
	LastClusterRunID string                     `json:"last_cluster_run_id,omitempty"`
	LastAuditRunID   string                     `json:"last_audit_run_id,omitempty"`
}

// Record ищет запись по внутреннему ID
func (s *SessionSnapshot) Record(id string) (*normalization.RawRecord, bool) {
	for _, rec := range s.Records {
		if rec.InternalID == id {
			return rec, true
		}
	}
	return nil, false
}

// WithRunIDs копия снимка с обновленными ID последних запусков.
// Пустое значение оставляет прежний ID. Записи разделяются, они не меняются.
func (s *SessionSnapshot) WithRunIDs(clusterRunID, auditRunID string) *SessionSnapshot {
	next := *s
	if clusterRunID != "" {
		next.LastClusterRunID = clusterRunID
	}
	if auditRunID != "" {
		next.LastAuditRunID = auditRunID
	}
	return &next
}
