package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

// TestGinCORSMiddleware проверяет добавление CORS заголовков
func TestGinCORSMiddleware(t *testing.T) {
	r := newTestEngine(GinCORSMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	headers := map[string]string{
		"Access-Control-Allow-Origin":   "*",
		"Access-Control-Allow-Methods":  "GET, POST, DELETE, OPTIONS",
		"Access-Control-Expose-Headers": RequestIDHeader,
	}
	for header, want := range headers {
		if got := w.Header().Get(header); got != want {
			t.Errorf("Header %s = %q, want %q", header, got, want)
		}
	}
}

// TestGinCORSMiddleware_Preflight проверяет обработку preflight запросов
func TestGinCORSMiddleware_Preflight(t *testing.T) {
	r := newTestEngine(GinCORSMiddleware())
	r.OPTIONS("/test", func(c *gin.Context) {
		t.Error("handler must not be called for preflight")
	})

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Access-Control-Allow-Origin should be set for preflight")
	}
}

func TestGinRequestIDMiddleware(t *testing.T) {
	var fromGin, fromCtx string
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinRequestIDMiddleware())
	r.GET("/test", func(c *gin.Context) {
		fromGin = GetRequestIDFromGin(c)
		fromCtx = GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		header := w.Header().Get(RequestIDHeader)
		if header == "" {
			t.Fatal("X-Request-ID should be generated")
		}
		if fromGin != header || fromCtx != header {
			t.Errorf("request id mismatch: header=%q gin=%q ctx=%q", header, fromGin, fromCtx)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "client-id-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if got := w.Header().Get(RequestIDHeader); got != "client-id-1" {
			t.Errorf("X-Request-ID = %q, want client-id-1", got)
		}
		if fromCtx != "client-id-1" {
			t.Errorf("context request id = %q", fromCtx)
		}
	})
}

func TestGinGzipMiddleware_SkipsEventStreams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinGzipMiddleware())
	r.GET("/runs/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "status")
	})
	r.GET("/runs/:id/events", func(c *gin.Context) {
		c.String(http.StatusOK, "data: x\n\n")
	})

	req := httptest.NewRequest(http.MethodGet, "/runs/1", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/runs/1/events", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("events stream must not be compressed, got %q", got)
	}
	if w.Body.String() != "data: x\n\n" {
		t.Errorf("body = %q", w.Body.String())
	}
}
