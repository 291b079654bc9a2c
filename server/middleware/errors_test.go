package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	servererrors "dedupserver/server/errors"
)

func serveError(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinRequestIDMiddleware())
	r.GET("/fail", func(c *gin.Context) {
		HandleHTTPError(c, err)
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v (%s)", err, w.Body.String())
	}
	return w, resp
}

func TestHandleHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "validation",
			err:        servererrors.NewValidationError("mapping is invalid", nil),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "mapping is invalid",
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("failed to get run: %w", servererrors.NewNotFoundError("run not found", nil)),
			wantStatus: http.StatusNotFound,
			wantMsg:    "run not found",
		},
		{
			name:       "conflict",
			err:        servererrors.NewConflictError("rule already exists", nil),
			wantStatus: http.StatusConflict,
			wantMsg:    "rule already exists",
		},
		{
			name:       "plain error is internal",
			err:        errors.New("disk I/O error: /var/lib/rules.db"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := serveError(t, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if resp.Error != tt.wantMsg {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantMsg)
			}
			if resp.RequestID != "req-42" {
				t.Errorf("request_id = %q, want req-42", resp.RequestID)
			}
			if resp.Timestamp == "" {
				t.Error("timestamp should be set")
			}
		})
	}
}

func TestHandleHTTPError_RecordsMetrics(t *testing.T) {
	GetErrorMetrics().Reset()

	serveError(t, servererrors.NewNotFoundError("session not found", nil))
	serveError(t, errors.New("boom"))

	stats := GetErrorMetrics().Stats()
	if stats.Total != 2 {
		t.Fatalf("Total = %d, want 2", stats.Total)
	}
	if stats.ByType["NotFoundError"] != 1 || stats.ByType["InternalError"] != 1 {
		t.Errorf("ByType = %v", stats.ByType)
	}
	if stats.ByEndpoint["/fail"] != 2 {
		t.Errorf("ByEndpoint = %v", stats.ByEndpoint)
	}
	if len(stats.Last) != 2 || stats.Last[0].RequestID != "req-42" {
		t.Errorf("Last = %+v", stats.Last)
	}
}

func TestGinRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinRequestIDMiddleware(), GinRecoveryMiddleware(nil))
	r.GET("/panic", func(c *gin.Context) {
		panic("unexpected")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Error != "Internal server error" {
		t.Errorf("error = %q", resp.Error)
	}
	if resp.RequestID == "" {
		t.Error("request_id should be set")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other client has its own limit")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/runs", NewRateLimiter(0.001, 1).Middleware(), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/runs", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("first status = %d, want 202", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/runs", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After should be set")
	}
}
