package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "dedupserver/server/errors"
)

var errorMetrics = apperrors.NewErrorMetricsCollector(100)

// GetErrorMetrics глобальный сборщик статистики ошибок API
func GetErrorMetrics() *apperrors.ErrorMetricsCollector {
	return errorMetrics
}

// HTTPError ошибка с HTTP статусом и сообщением для пользователя
type HTTPError interface {
	error
	StatusCode() int
	UserMessage() string
	GetContext() string
	Unwrap() error
}

// ErrorResponse структура ответа об ошибке
type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSONResponse записывает JSON ответ
func WriteJSONResponse(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, data)
}

// WriteJSONError прерывает обработку и записывает JSON ошибку
func WriteJSONError(c *gin.Context, message string, statusCode int) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:     message,
		Timestamp: time.Now().Format(time.RFC3339),
		RequestID: GetRequestIDFromGin(c),
	})
}

// HandleHTTPError логирует ошибку, учитывает ее в статистике и отвечает JSON.
// Ошибки без HTTP статуса считаются внутренними, их текст не уходит клиенту.
func HandleHTTPError(c *gin.Context, err error) {
	reqID := GetRequestIDFromGin(c)
	endpoint := c.FullPath()
	if endpoint == "" {
		endpoint = c.Request.URL.Path
	}

	var appErr *apperrors.AppError
	var httpErr HTTPError
	switch {
	case errors.As(err, &appErr):
		httpErr = appErr
	case errors.As(err, &httpErr):
	default:
		appErr = apperrors.NewInternalError("unhandled error", err)
		httpErr = appErr
	}
	if appErr != nil {
		errorMetrics.RecordError(appErr, endpoint, reqID)
	}

	level := slog.LevelWarn
	if httpErr.StatusCode() >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(c.Request.Context(), level, "HTTP error",
		"error", httpErr.Unwrap(),
		"user_message", httpErr.UserMessage(),
		"context", httpErr.GetContext(),
		"status_code", httpErr.StatusCode(),
		"request_id", reqID,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)

	_ = c.Error(err)
	WriteJSONError(c, httpErr.UserMessage(), httpErr.StatusCode())
}
