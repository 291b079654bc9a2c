package dedup

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dedupserver/database"
	"dedupserver/dedup"
	"dedupserver/internal/api/handlers/common"
	dedupapp "dedupserver/internal/application/dedup"
	dedupdomain "dedupserver/internal/domain/dedup"
	"dedupserver/internal/infrastructure/cache"
	"dedupserver/internal/infrastructure/persistence"
	"dedupserver/internal/infrastructure/workers"
	"dedupserver/server/middleware"
)

const sessionJSON = `{
	"records": [
		{"_internalId": "R1", "fields": {"woman": "فاطمة احمد علي محمد", "phone": "777123456"}},
		{"_internalId": "R2", "fields": {"woman": "فاطمه أحمد علي محمد", "phone": "+967 777 123 456"}},
		{"_internalId": "R3", "fields": {"woman": "زينب سعيد ناصر", "phone": "711000111"}}
	],
	"mapping": {"woman_name": "woman", "phone": "phone"}
}`

func newTestRouter(t *testing.T, maxUpload int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewRulesDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := workers.NewRunner(16, time.Minute, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		runner.Shutdown(ctx)
	})

	sessions := cache.NewSessionCache(persistence.NewSessionRepository(db), time.Minute)
	svc := dedupdomain.NewService(sessions, persistence.NewRuleRepository(db), runner, dedupdomain.DefaultSettings(), logger)
	h := NewHandler(common.NewBaseHandlerImpl(), dedupapp.NewUseCase(svc), db, maxUpload)

	r := gin.New()
	r.Use(middleware.GinRequestIDMiddleware())
	r.GET("/health", h.HandleHealth)
	api := r.Group("/api/v1")
	api.POST("/sessions", h.HandleCreateSession)
	api.GET("/sessions/:id", h.HandleGetSession)
	api.DELETE("/sessions/:id", h.HandleDeleteSession)
	api.POST("/sessions/:id/runs/cluster", h.HandleStartCluster)
	api.POST("/sessions/:id/runs/audit", h.HandleStartAudit)
	api.POST("/sessions/:id/runs/learn", h.HandleStartLearn)
	api.POST("/sessions/:id/compare", h.HandleCompare)
	api.GET("/runs/:run_id", h.HandleGetRun)
	api.GET("/runs/:run_id/events", h.HandleRunEvents)
	api.GET("/rules", h.HandleListRules)
	api.POST("/rules", h.HandleAppendRule)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func createTestSession(t *testing.T, r http.Handler) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions", sessionJSON)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	info := decode[dedupdomain.SessionInfo](t, w)
	require.NotEmpty(t, info.ID)
	return info.ID
}

// runToCompletion запускает операцию и читает ее поток событий до терминального сообщения
func runToCompletion(t *testing.T, r http.Handler, path, body string) (string, string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, path, body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	run := decode[RunResponse](t, w)
	assert.Equal(t, "/api/v1/runs/"+run.RunID, w.Header().Get("Location"))

	events := doJSON(t, r, http.MethodGet, "/api/v1/runs/"+run.RunID+"/events", "")
	require.Equal(t, http.StatusOK, events.Code)
	assert.Equal(t, "text/event-stream", events.Header().Get("Content-Type"))
	return run.RunID, events.Body.String()
}

func TestSessionLifecycle(t *testing.T) {
	r := newTestRouter(t, 1<<20)
	id := createTestSession(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[dedupdomain.SessionInfo](t, w)
	assert.Equal(t, 3, info.RecordCount)
	assert.Equal(t, "woman", info.Mapping.WomanName)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode[middleware.ErrorResponse](t, w)
	assert.Equal(t, "Session not found", resp.Error)
}

func TestCreateSessionInvalidMapping(t *testing.T) {
	r := newTestRouter(t, 1<<20)

	body := strings.Replace(sessionJSON, `"woman_name": "woman"`, `"woman_name": "missing_column"`, 1)
	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[middleware.ErrorResponse](t, w)
	assert.True(t, strings.HasPrefix(resp.Error, "invalid field mapping"), resp.Error)

	w = doJSON(t, r, http.MethodPost, "/api/v1/sessions", `{"records": [], "mapping": {"woman_name": "woman"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/sessions", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartBody(t *testing.T, fileName, content, mapping string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("mapping", mapping))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadSession(t *testing.T) {
	r := newTestRouter(t, 64<<10)

	csv := "woman,phone\nفاطمة احمد علي,777123456\nزينب سعيد ناصر,711000111\n"
	body, contentType := multipartBody(t, "list.csv", csv, `{"woman_name": "woman", "phone": "phone"}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	info := decode[dedupdomain.SessionInfo](t, w)
	assert.Equal(t, 2, info.RecordCount)
	assert.Equal(t, "list.csv", info.Source)
}

func TestUploadSessionErrors(t *testing.T) {
	r := newTestRouter(t, 1<<10)

	t.Run("too large", func(t *testing.T) {
		content := "woman\n" + strings.Repeat("فاطمة احمد علي\n", 200)
		body, contentType := multipartBody(t, "list.csv", content, `{"woman_name": "woman"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	})

	t.Run("unsupported format", func(t *testing.T) {
		body, contentType := multipartBody(t, "list.pdf", "woman\nx\n", `{"woman_name": "woman"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad mapping", func(t *testing.T) {
		body, contentType := multipartBody(t, "list.csv", "woman\nx\n", `woman`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

type clusterRunStatus struct {
	State    workers.RunState          `json:"state"`
	Progress float64                   `json:"progress"`
	Payload  dedupdomain.ClusterResult `json:"payload"`
}

func TestClusterRunEvents(t *testing.T) {
	r := newTestRouter(t, 1<<20)
	id := createTestSession(t, r)

	runID, stream := runToCompletion(t, r, "/api/v1/sessions/"+id+"/runs/cluster", "")
	assert.Contains(t, stream, "event:done")
	assert.NotContains(t, stream, "event:error")
	// терминальное сообщение последнее
	assert.True(t, strings.LastIndex(stream, "event:progress") < strings.LastIndex(stream, "event:done"))

	w := doJSON(t, r, http.MethodGet, "/api/v1/runs/"+runID, "")
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[clusterRunStatus](t, w)
	assert.Equal(t, workers.StateDone, status.State)
	assert.Equal(t, 100.0, status.Progress)
	require.Len(t, status.Payload.Clusters, 1)
	assert.Equal(t, []string{"R1", "R2"}, status.Payload.Clusters[0].MemberIDs())

	// повторное чтение потока отдает итог из статуса
	again := doJSON(t, r, http.MethodGet, "/api/v1/runs/"+runID+"/events", "")
	assert.Contains(t, again.Body.String(), "event:done")

	w = doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id, "")
	info := decode[dedupdomain.SessionInfo](t, w)
	assert.Equal(t, runID, info.LastClusterRunID)
}

func TestClusterRunInvalidBlockingField(t *testing.T) {
	r := newTestRouter(t, 1<<20)
	id := createTestSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/runs/cluster", `{"blocking_field": "shoe_size"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/sessions/missing/runs/cluster", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuditRunMissingMappingStreamsError(t *testing.T) {
	r := newTestRouter(t, 1<<20)
	id := createTestSession(t, r)

	_, stream := runToCompletion(t, r, "/api/v1/sessions/"+id+"/runs/audit", "")
	assert.Contains(t, stream, "event:error")
	assert.Contains(t, stream, "required field is not mapped")
	assert.NotContains(t, stream, "event:done")
}

func TestCompare(t *testing.T) {
	r := newTestRouter(t, 1<<20)
	id := createTestSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/compare", `{"record_a": "R1", "record_b": "R2"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	score := decode[dedup.PairScore](t, w)
	assert.Equal(t, "R1", score.RecordA)
	assert.Equal(t, "R2", score.RecordB)
	assert.True(t, score.IsMatch)

	w = doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/compare", `{"record_a": "R1", "record_b": "R9"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/compare", `{"record_a": "R1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLearnAndAppendRule(t *testing.T) {
	r := newTestRouter(t, 1<<20)
	id := createTestSession(t, r)

	runID, stream := runToCompletion(t, r, "/api/v1/sessions/"+id+"/runs/learn",
		`{"record_a": "R1", "record_b": "R2", "fields": ["woman_first"], "name": "first name"}`)
	require.Contains(t, stream, "event:done", stream)

	w := doJSON(t, r, http.MethodGet, "/api/v1/runs/"+runID, "")
	learned := decode[struct {
		Payload dedup.Rule `json:"payload"`
	}](t, w).Payload
	assert.Equal(t, "first name", learned.Name)
	require.NotEmpty(t, learned.Clauses)

	// выученное правило не действует, пока его не сохранили
	w = doJSON(t, r, http.MethodGet, "/api/v1/rules", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[dedup.RuleSet](t, w).Rules)

	body, err := json.Marshal(learned)
	require.NoError(t, err)

	w = doJSON(t, r, http.MethodPost, "/api/v1/rules", string(body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/v1/rules", string(body))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/rules", "")
	rules := decode[dedup.RuleSet](t, w)
	require.Len(t, rules.Rules, 1)
	assert.Equal(t, learned.ID, rules.Rules[0].ID)

	w = doJSON(t, r, http.MethodPost, "/api/v1/rules", `{"name": "empty", "clauses": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLearnValidation(t *testing.T) {
	r := newTestRouter(t, 1<<20)
	id := createTestSession(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/runs/learn", `{"record_a": "R1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/runs/learn", `{"record_a": "R1", "record_b": "R9"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunNotFound(t *testing.T) {
	r := newTestRouter(t, 1<<20)

	w := doJSON(t, r, http.MethodGet, "/api/v1/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/runs/missing/events", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, 1<<20)

	w := doJSON(t, r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Database)
}

func TestTerminalMessage(t *testing.T) {
	finished := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	msg := terminalMessage(workers.Status{
		RunID: "r1", Kind: "audit", State: workers.StateError,
		Progress: 40, Error: "boom", FinishedAt: &finished, Payload: "partial",
	})
	assert.Equal(t, workers.MessageError, msg.Type)
	assert.Equal(t, "boom", msg.Error)
	assert.Nil(t, msg.Payload)
	assert.Equal(t, finished, msg.Timestamp)

	msg = terminalMessage(workers.Status{RunID: "r2", State: workers.StateDone, Progress: 100, Payload: 1})
	assert.Equal(t, workers.MessageDone, msg.Type)
	assert.Equal(t, 1, msg.Payload)
}
