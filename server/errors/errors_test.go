package errors

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestConstructors(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		name     string
		err      *AppError
		code     int
		typeName string
	}{
		{"validation", NewValidationError("bad mapping", cause), http.StatusBadRequest, "ValidationError"},
		{"not found", NewNotFoundError("session not found", cause), http.StatusNotFound, "NotFoundError"},
		{"conflict", NewConflictError("rule exists", cause), http.StatusConflict, "ConflictError"},
		{"too large", NewPayloadTooLargeError("file too large", cause), http.StatusRequestEntityTooLarge, "PayloadTooLargeError"},
		{"rate limit", NewTooManyRequestsError("slow down"), http.StatusTooManyRequests, "RateLimitError"},
		{"internal", NewInternalError("db failed", cause), http.StatusInternalServerError, "InternalError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.StatusCode() != tt.code {
				t.Errorf("StatusCode() = %d, want %d", tt.err.StatusCode(), tt.code)
			}
			if tt.err.Type() != tt.typeName {
				t.Errorf("Type() = %s, want %s", tt.err.Type(), tt.typeName)
			}
		})
	}
}

// TestInternalErrorHidesDetails детали внутренней ошибки не попадают в сообщение пользователю
func TestInternalErrorHidesDetails(t *testing.T) {
	cause := errors.New("sqlite: disk I/O error")
	err := NewInternalError("failed to save rule", cause)

	if strings.Contains(err.UserMessage(), "sqlite") {
		t.Errorf("User message leaks details: %s", err.UserMessage())
	}
	if !errors.Is(err, cause) {
		t.Error("Internal error should wrap its cause")
	}
	if !strings.Contains(err.Error(), "failed to save rule") {
		t.Errorf("Error() should contain log message, got %s", err.Error())
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "ignored") != nil {
		t.Error("WrapError(nil) should return nil")
	}

	notFound := NewNotFoundError("run not found", nil).WithContext("GetRun")
	wrapped := WrapError(notFound, "events")
	if wrapped.Code != http.StatusNotFound {
		t.Errorf("Wrapped AppError must keep status, got %d", wrapped.Code)
	}
	if wrapped.Message != "events: run not found" || wrapped.GetContext() != "GetRun" {
		t.Errorf("Unexpected wrapped error: %+v", wrapped)
	}

	plain := WrapError(errors.New("boom"), "cluster")
	if plain.Code != http.StatusInternalServerError {
		t.Errorf("Plain error should become internal, got %d", plain.Code)
	}
}

func TestErrorMetricsCollector(t *testing.T) {
	c := NewErrorMetricsCollector(2)
	c.RecordError(NewValidationError("a", nil), "/api/v1/sessions", "r1")
	c.RecordError(NewNotFoundError("b", nil), "/api/v1/runs/x", "r2")
	c.RecordError(NewNotFoundError("c", nil), "/api/v1/runs/y", "r3")
	c.RecordError(nil, "/ignored", "")

	stats := c.Stats()
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.ByCode[http.StatusNotFound] != 2 || stats.ByType["ValidationError"] != 1 {
		t.Errorf("Unexpected counters: %+v", stats)
	}
	if len(stats.Last) != 2 || stats.Last[1].RequestID != "r3" {
		t.Errorf("Expected last two errors, got %+v", stats.Last)
	}

	c.Reset()
	if c.Stats().Total != 0 {
		t.Error("Reset should clear counters")
	}
}
