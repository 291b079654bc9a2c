package errors

import (
	"sync"
	"time"
)

// ErrorRecord запись об ошибке
type ErrorRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Code      int       `json:"code"`
	Message   string    `json:"message"`
	Endpoint  string    `json:"endpoint"`
	RequestID string    `json:"request_id,omitempty"`
}

// ErrorStats снимок статистики ошибок
type ErrorStats struct {
	Total      int64            `json:"total"`
	ByType     map[string]int64 `json:"by_type"`
	ByCode     map[int]int64    `json:"by_code"`
	ByEndpoint map[string]int64 `json:"by_endpoint"`
	Last       []ErrorRecord    `json:"last"`
	Since      time.Time        `json:"since"`
}

// ErrorMetricsCollector считает ошибки API для мониторинга
type ErrorMetricsCollector struct {
	mu sync.RWMutex

	total      int64
	byType     map[string]int64
	byCode     map[int]int64
	byEndpoint map[string]int64

	last    []ErrorRecord
	maxLast int

	startTime time.Time
}

// NewErrorMetricsCollector создает сборщик, хранящий maxLast последних ошибок
func NewErrorMetricsCollector(maxLast int) *ErrorMetricsCollector {
	if maxLast <= 0 {
		maxLast = 100
	}
	return &ErrorMetricsCollector{
		byType:     make(map[string]int64),
		byCode:     make(map[int]int64),
		byEndpoint: make(map[string]int64),
		maxLast:    maxLast,
		startTime:  time.Now(),
	}
}

// RecordError учитывает ошибку
func (c *ErrorMetricsCollector) RecordError(err *AppError, endpoint, requestID string) {
	if err == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.byType[err.Type()]++
	c.byCode[err.Code]++
	c.byEndpoint[endpoint]++

	c.last = append(c.last, ErrorRecord{
		Timestamp: time.Now(),
		Type:      err.Type(),
		Code:      err.Code,
		Message:   err.Message,
		Endpoint:  endpoint,
		RequestID: requestID,
	})
	if len(c.last) > c.maxLast {
		c.last = c.last[len(c.last)-c.maxLast:]
	}
}

// Stats возвращает копию статистики
func (c *ErrorMetricsCollector) Stats() ErrorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := ErrorStats{
		Total:      c.total,
		ByType:     make(map[string]int64, len(c.byType)),
		ByCode:     make(map[int]int64, len(c.byCode)),
		ByEndpoint: make(map[string]int64, len(c.byEndpoint)),
		Last:       append([]ErrorRecord(nil), c.last...),
		Since:      c.startTime,
	}
	for k, v := range c.byType {
		stats.ByType[k] = v
	}
	for k, v := range c.byCode {
		stats.ByCode[k] = v
	}
	for k, v := range c.byEndpoint {
		stats.ByEndpoint[k] = v
	}
	return stats
}

// Reset обнуляет статистику
func (c *ErrorMetricsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total = 0
	c.byType = make(map[string]int64)
	c.byCode = make(map[int]int64)
	c.byEndpoint = make(map[string]int64)
	c.last = nil
	c.startTime = time.Now()
}
