package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// internalUserMessage общее сообщение для 500, детали остаются в логах
const internalUserMessage = "Internal server error"

// AppError ошибка приложения с HTTP статусом и контекстом
type AppError struct {
	Code    int    `json:"status_code"`
	Message string `json:"message"` // сообщение для пользователя
	Err     error  `json:"-"`       // внутренняя ошибка, только для логов
	Context string `json:"-"`       // где произошла ошибка
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap возвращает вложенную ошибку для errors.Is и errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode HTTP статус ошибки
func (e *AppError) StatusCode() int {
	return e.Code
}

// UserMessage сообщение для пользователя
func (e *AppError) UserMessage() string {
	return e.Message
}

// GetContext контекст ошибки
func (e *AppError) GetContext() string {
	return e.Context
}

// WithContext добавляет контекст к ошибке
func (e *AppError) WithContext(context string) *AppError {
	e.Context = context
	return e
}

// Type короткое имя вида ошибки по статусу, используется в статистике
func (e *AppError) Type() string {
	switch e.Code {
	case http.StatusBadRequest:
		return "ValidationError"
	case http.StatusNotFound:
		return "NotFoundError"
	case http.StatusConflict:
		return "ConflictError"
	case http.StatusRequestEntityTooLarge:
		return "PayloadTooLargeError"
	case http.StatusTooManyRequests:
		return "RateLimitError"
	}
	if e.Code >= http.StatusInternalServerError {
		return "InternalError"
	}
	return "HTTPError"
}

func newAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewValidationError 400 Bad Request
func NewValidationError(message string, err error) *AppError {
	return newAppError(http.StatusBadRequest, message, err)
}

// NewNotFoundError 404 Not Found
func NewNotFoundError(message string, err error) *AppError {
	return newAppError(http.StatusNotFound, message, err)
}

// NewConflictError 409 Conflict
func NewConflictError(message string, err error) *AppError {
	return newAppError(http.StatusConflict, message, err)
}

// NewPayloadTooLargeError 413 Request Entity Too Large
func NewPayloadTooLargeError(message string, err error) *AppError {
	return newAppError(http.StatusRequestEntityTooLarge, message, err)
}

// NewTooManyRequestsError 429 Too Many Requests
func NewTooManyRequestsError(message string) *AppError {
	return newAppError(http.StatusTooManyRequests, message, nil)
}

// NewInternalError 500 Internal Server Error.
// Пользователь получает общее сообщение, message и err попадают в лог.
func NewInternalError(message string, err error) *AppError {
	return newAppError(http.StatusInternalServerError, internalUserMessage, errors.Join(errors.New(message), err))
}

// WrapError оборачивает ошибку с сообщением.
// AppError сохраняет статус, любая другая ошибка становится InternalError.
func WrapError(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
			Context: appErr.Context,
		}
	}

	return NewInternalError(message, err)
}
