package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"dedupserver/dedup"
	"dedupserver/importer"
	"dedupserver/internal/api/handlers/common"
	dedupapp "dedupserver/internal/application/dedup"
	dedupdomain "dedupserver/internal/domain/dedup"
	"dedupserver/internal/infrastructure/workers"
	"dedupserver/normalization"
	apperrors "dedupserver/server/errors"
	"dedupserver/server/middleware"
)

// DefaultHeartbeatInterval период heartbeat событий в потоке запуска
const DefaultHeartbeatInterval = 15 * time.Second

// HealthChecker проверка доступности хранилища
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler HTTP обработчик сессий, запусков и правил поиска дублей
type Handler struct {
	baseHandler   common.BaseHandlerInterface
	useCase       *dedupapp.UseCase
	health        HealthChecker
	maxUploadSize int64
	heartbeat     time.Duration
}

// NewHandler создает новый HTTP обработчик для поиска дублей
func NewHandler(
	baseHandler common.BaseHandlerInterface,
	useCase *dedupapp.UseCase,
	health HealthChecker,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		baseHandler:   baseHandler,
		useCase:       useCase,
		health:        health,
		maxUploadSize: maxUploadSize,
		heartbeat:     DefaultHeartbeatInterval,
	}
}

// CreateSessionRequest тело JSON запроса создания сессии
type CreateSessionRequest struct {
	Records []*normalization.RawRecord `json:"records"`
	Mapping normalization.FieldMapping `json:"mapping"`
}

// ClusterRunRequest параметры кластеризации
type ClusterRunRequest struct {
	BlockingField string `json:"blocking_field,omitempty"`
}

// LearnRunRequest пара записей, подтвержденных как дубли
type LearnRunRequest struct {
	RecordA string             `json:"record_a"`
	RecordB string             `json:"record_b"`
	Fields  []dedup.ScoreField `json:"fields,omitempty"`
	Name    string             `json:"name,omitempty"`
	Note    string             `json:"note,omitempty"`
}

// CompareRequest пара записей для разбора оценки
type CompareRequest struct {
	RecordA string `json:"record_a"`
	RecordB string `json:"record_b"`
}

// RunResponse ответ на запуск фоновой операции
type RunResponse struct {
	RunID string `json:"run_id"`
	Kind  string `json:"kind"`
}

// HealthResponse ответ проверки состояния
type HealthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	ErrorsTotal int64  `json:"errors_total"`
	Time        string `json:"time"`
}

// @Summary Create session
// @Description Creates a session from JSON records or from an uploaded xlsx/csv file with a mapping
// @Tags sessions
// @Accept json,mpfd
// @Produce json
// @Param request body CreateSessionRequest false "Records and mapping"
// @Param file formData file false "Beneficiary list (xlsx or csv)"
// @Param mapping formData string false "Field mapping JSON"
// @Success 201 {object} dedupdomain.SessionInfo
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 413 {object} middleware.ErrorResponse
// @Router /api/v1/sessions [post]
func (h *Handler) HandleCreateSession(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		h.handleUploadSession(c)
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.baseHandler.HandleHTTPError(c, apperrors.NewValidationError("Invalid request body", err))
		return
	}

	info, err := h.useCase.CreateSession(c.Request.Context(), req.Records, req.Mapping)
	if err != nil {
		h.baseHandler.HandleHTTPError(c, toHTTPError(err))
		return
	}

	h.baseHandler.WriteJSONResponse(c, info, http.StatusCreated)
}

func (h *Handler) handleUploadSession(c *gin.Context) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			h.baseHandler.HandleHTTPError(c, apperrors.NewPayloadTooLargeError(
				fmt.Sprintf("File exceeds %d MB", h.maxUploadSize>>20), err))
			return
		}
		h.baseHandler.HandleHTTPError(c, apperrors.NewValidationError("file is required", err))
		return
	}

	var mapping normalization.FieldMapping
	if err := json.Unmarshal([]byte(c.PostForm("mapping")), &mapping); err != nil {
		h.baseHandler.HandleHTTPError(c, apperrors.NewValidationError("mapping must be a JSON object", err))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.baseHandler.HandleHTTPError(c, apperrors.NewInternalError("failed to open uploaded file", err))
		return
	}
	defer file.Close()

	info, err := h.useCase.ImportSession(c.Request.Context(), file, fileHeader.Filename, mapping)
	if err != nil {
		h.baseHandler.HandleHTTPError(c, toHTTPError(err))
		return
	}

	h.baseHandler.WriteJSONResponse(c, info, http.StatusCreated)
}

// @Summary Get session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dedupdomain.SessionInfo
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/sessions/{id} [get]
func (h *Handler) HandleGetSession(c *gin.Context) {
	info, err := h.useCase.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.baseHandler.HandleHTTPError(c, toHTTPError(err))
		return
	}
	h.baseHandler.WriteJSONResponse(c, info, http.StatusOK)
}

// @Summary Delete session
// @Description Deletes the session snapshot and cancels its running runs
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/sessions/{id} [delete]
func (h *Handler) HandleDeleteSession(c *gin.Context) {
	if err := h.useCase.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		h.baseHandler.HandleHTTPError(c, toHTTPError(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Start cluster run
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body ClusterRunRequest false "Blocking options"
// @Success 202 {object} RunResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 429 {object} middleware.ErrorResponse
// @Router /api/v1/sessions/{id}/runs/cluster [post]
func (h *Handler) HandleStartCluster(c *gin.Context) {
	var req ClusterRunRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.baseHandler.HandleHTTPError(c, apperrors.NewValidationError("Invalid request body", err))
			return
		}
	}

	run, err := h.useCase.StartCluster(c.Request.Context(), c.Param("id"), req.BlockingField)
	if err != nil {
		h.baseHandler.HandleHTTPError(c, toHTTPError(err))
		return
	}
	h.writeRun(c, run)
}

// @Summary Start audit run
// @Tags runs
// @Produce json
// @Param id path string true "Session ID"
// @Success 202 {object} RunResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 429 {object} middleware.ErrorResponse
// @Router /api/v1/sessions/{id}/runs/audit [post]
func (h *Handler) HandleStartAudit(c *gin.Context) {
	run, err := h.useCase.StartAudit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.baseHandler.HandleHTTPError(c, toHTTPError(err))
		return
	}
	h.writeRun(c, run)
}

// @Summary Start learn run
// @Description Derives an inert rule from two records confirmed as duplicates
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body LearnRunRequest true "Confirmed pair"
// @Success 202 {object} RunResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/sessions/{id}/runs/learn [post]
func (h *Handler) HandleStartLearn(c *gin.Context) {
	var req LearnRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.baseHandler.HandleHTTPError(c, apperrors.NewValidationError("Invalid request body", err))
		return
	}
	if req.RecordA == "" || req.RecordB == "" {
		h.baseHandler.HandleHTTPError(c, apperrors.NewValidationError("record_a and record_b are required", nil))
		return
	}

	run, err := h.useCase.StartLearn(c.Request.Context(), c.Param("id"), dedupdomain.LearnRequest{
		RecordA: req.RecordA,
		RecordB: req.RecordB,
		Pattern: dedup.ObservedPattern{Fields: req.Fields, Name: req.Name, Note: req.Note},
	})
	if err != nil {
		h.baseHandler.HandleHTTPError(c, toHTTPError(err))
		return
	}
	h.writeRun(c, run)
}

func (h *Handler) writeRun(c *gin.Context, run *workers.Run) {
	c.Header("Location", "/api/v1/runs/"+run.ID)
	h.baseHandler.WriteJSONResponse(c, RunResponse{RunID: run.ID, Kind: run.Kind}, http.StatusAccepted)
}

// @Summary Get run status
// @Tags runs
// @Produce json
// @Param run_id path string true "Run ID"
// @Success 200 {object} workers.Status
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/runs/{run_id} [get]
func (h *Handler) HandleGetRun(c *gin.Context) {
	run, err := h.useCase.GetRun(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		h.baseHandler.HandleHTTPError(c, toHTTPError(err))
		return
	}
	h.baseHandler.WriteJSONResponse(c, run.Status(), http.StatusOK)
}

// @Summary Stream run events
// @Description Server-sent events: progress messages followed by exactly one done or error message
// @Tags runs
// @Produce text/event-stream
// @Param run_id path string true "Run ID"
// @Success 200 {object} workers.Message
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/runs/{run_id}/events [get]
func (h *Handler) HandleRunEvents(c *gin.Context) {
	run, err := h.useCase.GetRun(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		h.baseHandler.HandleHTTPError(c, toHTTPError(err))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	messages := run.Messages()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SSEvent("heartbeat", gin.H{"run_id": run.ID, "timestamp": time.Now().Format(time.RFC3339)})
		case msg, ok := <-messages:
			if !ok {
				// Сообщения уже вычитал другой подписчик, итог берем из статуса
				final := terminalMessage(run.Status())
				c.SSEvent(string(final.Type), final)
				c.Writer.Flush()
				return
			}
			c.SSEvent(string(msg.Type), msg)
			if msg.Type != workers.MessageProgress {
				c.Writer.Flush()
				return
			}
		}
		c.Writer.Flush()
	}
}

func terminalMessage(status workers.Status) workers.Message {
	msg := workers.Message{
		RunID:     status.RunID,
		Kind:      status.Kind,
		Type:      workers.MessageDone,
		Progress:  status.Progress,
		Payload:   status.Payload,
		Timestamp: time.Now(),
	}
	if status.FinishedAt != nil {
		msg.Timestamp = *status.FinishedAt
	}
	if status.State == workers.StateError {
		msg.Type = workers.MessageError
		msg.Payload = nil
		msg.Error = status.Error
	}
	return msg
}

// @Summary Compare two records
// @Description Synchronous pairwise score breakdown
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body CompareRequest true "Record pair"
// @Success 200 {object} dedup.PairScore
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /api/v1/sessions/{id}/compare [post]
func (h *Handler) HandleCompare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.baseHandler.HandleHTTPError(c, apperrors.NewValidationError("Invalid request body", err))
		return
	}
	if req.RecordA == "" || req.RecordB == "" {
		h.baseHandler.HandleHTTPError(c, apperrors.NewValidationError("record_a and record_b are required", nil))
		return
	}

	score, err := h.useCase.Compare(c.Request.Context(), c.Param("id"), req.RecordA, req.RecordB)
	if err != nil {
		h.baseHandler.HandleHTTPError(c, toHTTPError(err))
		return
	}
	h.baseHandler.WriteJSONResponse(c, score, http.StatusOK)
}

// @Summary List rules
// @Description Current weights, match threshold and persisted rules in append order
// @Tags rules
// @Produce json
// @Success 200 {object} dedup.RuleSet
// @Router /api/v1/rules [get]
func (h *Handler) HandleListRules(c *gin.Context) {
	rules, err := h.useCase.GetRuleSet(c.Request.Context())
	if err != nil {
		h.baseHandler.HandleHTTPError(c, toHTTPError(err))
		return
	}
	h.baseHandler.WriteJSONResponse(c, rules, http.StatusOK)
}

// @Summary Append rule
// @Description Persists one confirmed rule. Rules are never updated or deleted.
// @Tags rules
// @Accept json
// @Produce json
// @Param request body dedup.Rule true "Rule"
// @Success 201 {object} dedup.Rule
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /api/v1/rules [post]
func (h *Handler) HandleAppendRule(c *gin.Context) {
	var rule dedup.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		h.baseHandler.HandleHTTPError(c, apperrors.NewValidationError("Invalid request body", err))
		return
	}

	saved, err := h.useCase.AppendRule(c.Request.Context(), rule)
	if err != nil {
		h.baseHandler.HandleHTTPError(c, toHTTPError(err))
		return
	}
	h.baseHandler.WriteJSONResponse(c, saved, http.StatusCreated)
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *Handler) HandleHealth(c *gin.Context) {
	resp := HealthResponse{
		Status:      "ok",
		Database:    "ok",
		ErrorsTotal: middleware.GetErrorMetrics().Stats().Total,
		Time:        time.Now().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	h.baseHandler.WriteJSONResponse(c, resp, status)
}

// toHTTPError переводит ошибки домена в ошибки с HTTP статусом
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, dedupdomain.ErrSessionNotFound):
		return apperrors.NewNotFoundError("Session not found", err)
	case errors.Is(err, dedupdomain.ErrRunNotFound):
		return apperrors.NewNotFoundError("Run not found", err)
	case errors.Is(err, dedupdomain.ErrRecordNotFound):
		return apperrors.NewNotFoundError(rootMessage(err, dedupdomain.ErrRecordNotFound), err)
	case errors.Is(err, dedupdomain.ErrRuleExists):
		return apperrors.NewConflictError(rootMessage(err, dedupdomain.ErrRuleExists), err)
	case errors.Is(err, dedupdomain.ErrInvalidMapping):
		return apperrors.NewValidationError(rootMessage(err, dedupdomain.ErrInvalidMapping), err)
	case errors.Is(err, dedupdomain.ErrInvalidRule):
		return apperrors.NewValidationError(rootMessage(err, dedupdomain.ErrInvalidRule), err)
	case errors.Is(err, dedupdomain.ErrInvalidBlockingField):
		return apperrors.NewValidationError(rootMessage(err, dedupdomain.ErrInvalidBlockingField), err)
	case errors.Is(err, dedupdomain.ErrEmptySession), errors.Is(err, importer.ErrNoData):
		return apperrors.NewValidationError("No records to process", err)
	case errors.Is(err, importer.ErrUnsupportedFormat):
		return apperrors.NewValidationError("Unsupported file format, expected xlsx or csv", err)
	}
	return err
}

// rootMessage отрезает от текста ошибки префиксы обертки до sentinel
func rootMessage(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()); i >= 0 {
		return msg[i:]
	}
	return sentinel.Error()
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}
