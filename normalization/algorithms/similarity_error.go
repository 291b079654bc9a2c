package algorithms

import (
	"errors"
	"fmt"
)

// SimilarityError ошибка системы схожести
type SimilarityError struct {
	Code    string
	Message string
	Details map[string]interface{}
	Err     error
}

// Error реализует интерфейс error
func (e *SimilarityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap возвращает вложенную ошибку
func (e *SimilarityError) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по коду, чтобы работал errors.Is с эталонными ошибками
func (e *SimilarityError) Is(target error) bool {
	var other *SimilarityError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// Коды ошибок
const (
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeInvalidWeights   = "INVALID_WEIGHTS"
	ErrCodeInvalidThreshold = "INVALID_THRESHOLD"
	ErrCodeEmptyData        = "EMPTY_DATA"
	ErrCodeNoPattern        = "NO_PATTERN"
)

// NewSimilarityError создает новую ошибку
func NewSimilarityError(code, message string, err error) *SimilarityError {
	return &SimilarityError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// WithDetail добавляет детали к ошибке
func (e *SimilarityError) WithDetail(key string, value interface{}) *SimilarityError {
	e.Details[key] = value
	return e
}

// HasCode проверяет код ошибки схожести в цепочке ошибок
func HasCode(err error, code string) bool {
	var se *SimilarityError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// AggregateWeights веса компонентов итоговой оценки пары
type AggregateWeights struct {
	Family    float64 `json:"family"`
	OrderFree float64 `json:"order_free"`
	Phone     float64 `json:"phone"`
	Children  float64 `json:"children"`
}

// DefaultAggregateWeights веса по умолчанию
func DefaultAggregateWeights() AggregateWeights {
	return AggregateWeights{
		Family:    0.30,
		OrderFree: 0.40,
		Phone:     0.20,
		Children:  0.10,
	}
}

// ValidateWeights проверяет валидность весов
func ValidateWeights(weights *AggregateWeights) error {
	if weights == nil {
		return NewSimilarityError(ErrCodeInvalidWeights, "weights cannot be nil", nil)
	}

	if weights.Family < 0 || weights.OrderFree < 0 || weights.Phone < 0 || weights.Children < 0 {
		return NewSimilarityError(ErrCodeInvalidWeights, "all weights must be non-negative", nil).
			WithDetail("weights", *weights)
	}

	// Фамилия и сравнение без учета порядка всегда информативны,
	// поэтому хотя бы один из этих весов должен быть положительным
	if weights.Family+weights.OrderFree <= 0 {
		return NewSimilarityError(ErrCodeInvalidWeights, "name weights must be greater than 0", nil).
			WithDetail("family", weights.Family).
			WithDetail("order_free", weights.OrderFree)
	}

	return nil
}

// ValidateThreshold проверяет валидность порога
func ValidateThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return NewSimilarityError(ErrCodeInvalidThreshold,
			fmt.Sprintf("threshold must be between 0 and 1, got %.2f", threshold), nil).
			WithDetail("threshold", threshold)
	}
	return nil
}
