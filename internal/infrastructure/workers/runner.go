package workers

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageType тип сообщения фонового запуска
type MessageType string

const (
	MessageProgress MessageType = "progress"
	MessageDone     MessageType = "done"
	MessageError    MessageType = "error"
)

// RunState состояние запуска
type RunState string

const (
	StateRunning RunState = "running"
	StateDone    RunState = "done"
	StateError   RunState = "error"
)

// DefaultBufferSize размер буфера сообщений о прогрессе по умолчанию
const DefaultBufferSize = 64

// Message сообщение от фонового запуска.
// Прогресс монотонно растет, терминальное сообщение (done или error) ровно одно и последнее.
type Message struct {
	RunID     string      `json:"run_id"`
	Kind      string      `json:"kind"`
	Type      MessageType `json:"type"`
	Progress  float64     `json:"progress"`
	Payload   any         `json:"payload,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Task работа, выполняемая в отдельной горутине.
// report принимает процент 0..100; убывающие значения игнорируются.
type Task func(ctx context.Context, report func(percent float64)) (any, error)

// Status снимок состояния запуска для опроса
type Status struct {
	RunID      string     `json:"run_id"`
	Kind       string     `json:"kind"`
	State      RunState   `json:"state"`
	Progress   float64    `json:"progress"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Payload    any        `json:"payload,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Run один фоновый запуск
type Run struct {
	ID   string
	Kind string

	messages chan Message
	cancel   context.CancelFunc
	done     chan struct{}

	mu     sync.RWMutex
	status Status
}

// Messages канал сообщений запуска; закрывается после терминального сообщения
func (r *Run) Messages() <-chan Message {
	return r.messages
}

// Done закрывается, когда запуск завершен
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Cancel отменяет контекст задачи. Запуск все равно завершится терминальным сообщением.
func (r *Run) Cancel() {
	r.cancel()
}

// Status текущий статус запуска
func (r *Run) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Wait ждет завершения запуска или отмены ctx
func (r *Run) Wait(ctx context.Context) (Status, error) {
	select {
	case <-r.done:
		return r.Status(), nil
	case <-ctx.Done():
		return r.Status(), ctx.Err()
	}
}

// sendProgress неблокирующая отправка: одно место в буфере всегда остается
// под терминальное сообщение. Проверка и отправка выполняются под mu.
func (r *Run) sendProgress(percent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if percent <= r.status.Progress || r.status.State != StateRunning {
		return
	}
	r.status.Progress = percent

	if len(r.messages) >= cap(r.messages)-1 {
		// Буфер полон, пропускаем сообщение
		return
	}
	select {
	case r.messages <- Message{
		RunID:     r.ID,
		Kind:      r.Kind,
		Type:      MessageProgress,
		Progress:  percent,
		Timestamp: time.Now(),
	}:
	default:
	}
}

// finish фиксирует результат, отправляет терминальное сообщение и закрывает канал
func (r *Run) finish(payload any, err error) Message {
	now := time.Now()
	msg := Message{RunID: r.ID, Kind: r.Kind, Timestamp: now}

	r.mu.Lock()
	r.status.FinishedAt = &now
	if err != nil {
		r.status.State = StateError
		r.status.Error = err.Error()
		msg.Type = MessageError
		msg.Error = err.Error()
		msg.Progress = r.status.Progress
	} else {
		r.status.State = StateDone
		r.status.Progress = 100
		r.status.Payload = payload
		msg.Type = MessageDone
		msg.Progress = 100
		msg.Payload = payload
	}
	r.mu.Unlock()

	r.messages <- msg
	close(r.messages)
	close(r.done)
	return msg
}

// Runner запускает задачи по одной горутине на запуск и хранит их статусы
type Runner struct {
	bufferSize int
	retention  time.Duration
	logger     *slog.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRunner создает исполнитель. retention - сколько хранить завершенные запуски (0 - бессрочно).
func NewRunner(bufferSize int, retention time.Duration, logger *slog.Logger) *Runner {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		bufferSize: bufferSize,
		retention:  retention,
		logger:     logger,
		baseCtx:    ctx,
		baseCancel: cancel,
		runs:       make(map[string]*Run),
	}
}

// Start запускает задачу в отдельной горутине и сразу возвращает запуск
func (rn *Runner) Start(kind string, task Task) *Run {
	ctx, cancel := context.WithCancel(rn.baseCtx)
	run := &Run{
		ID:   uuid.New().String(),
		Kind: kind,
		// +1 место под терминальное сообщение
		messages: make(chan Message, rn.bufferSize+1),
		cancel:   cancel,
		done:     make(chan struct{}),
		status: Status{
			Kind:      kind,
			State:     StateRunning,
			StartedAt: time.Now(),
		},
	}
	run.status.RunID = run.ID

	rn.mu.Lock()
	rn.pruneLocked()
	rn.runs[run.ID] = run
	rn.mu.Unlock()

	rn.logger.Info("Run started", "run_id", run.ID, "kind", kind)

	rn.wg.Add(1)
	go rn.execute(ctx, run, task)

	return run
}

func (rn *Runner) execute(ctx context.Context, run *Run, task Task) {
	defer rn.wg.Done()
	defer run.cancel()

	payload, err := rn.safeCall(ctx, run, task)
	msg := run.finish(payload, err)

	status := run.Status()
	duration := status.FinishedAt.Sub(status.StartedAt)
	if msg.Type == MessageError {
		rn.logger.Warn("Run failed", "run_id", run.ID, "kind", run.Kind, "error", msg.Error, "duration", duration)
		return
	}
	rn.logger.Info("Run completed", "run_id", run.ID, "kind", run.Kind, "duration", duration)
}

// safeCall превращает панику задачи в ошибку
func (rn *Runner) safeCall(ctx context.Context, run *Run, task Task) (payload any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			rn.logger.Error("Run panicked", "run_id", run.ID, "kind", run.Kind, "panic", rec, "stack", string(debug.Stack()))
			payload = nil
			err = fmt.Errorf("internal error: %v", rec)
		}
	}()

	report := func(percent float64) {
		run.sendProgress(max(0, min(100, percent)))
	}
	return task(ctx, report)
}

// Get возвращает запуск по ID
func (rn *Runner) Get(id string) (*Run, bool) {
	rn.mu.RLock()
	defer rn.mu.RUnlock()
	run, ok := rn.runs[id]
	return run, ok
}

// pruneLocked удаляет завершенные запуски старше retention
func (rn *Runner) pruneLocked() {
	if rn.retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-rn.retention)
	for id, run := range rn.runs {
		status := run.Status()
		if status.FinishedAt != nil && status.FinishedAt.Before(cutoff) {
			delete(rn.runs, id)
		}
	}
}

// Shutdown отменяет все запуски и ждет их завершения
func (rn *Runner) Shutdown(ctx context.Context) error {
	rn.baseCancel()

	waitCh := make(chan struct{})
	go func() {
		rn.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
