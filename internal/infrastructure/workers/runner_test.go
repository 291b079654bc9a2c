package workers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(buffer int) *Runner {
	return NewRunner(buffer, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// collect читает все сообщения до закрытия канала
func collect(t *testing.T, run *Run) []Message {
	t.Helper()
	var msgs []Message
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-run.Messages():
			if !ok {
				return msgs
			}
			msgs = append(msgs, msg)
		case <-timeout:
			t.Fatal("timeout waiting for run messages")
			return nil
		}
	}
}

func TestRunnerDone(t *testing.T) {
	runner := newTestRunner(16)
	run := runner.Start("cluster", func(ctx context.Context, report func(float64)) (any, error) {
		report(10)
		report(5) // убывающий прогресс игнорируется
		report(50)
		return "result", nil
	})

	msgs := collect(t, run)
	require.NotEmpty(t, msgs)

	last := msgs[len(msgs)-1]
	assert.Equal(t, MessageDone, last.Type)
	assert.Equal(t, "result", last.Payload)
	assert.Equal(t, run.ID, last.RunID)
	assert.Equal(t, "cluster", last.Kind)

	var progress []float64
	for _, msg := range msgs[:len(msgs)-1] {
		assert.Equal(t, MessageProgress, msg.Type)
		progress = append(progress, msg.Progress)
	}
	assert.Equal(t, []float64{10, 50}, progress)

	status := run.Status()
	assert.Equal(t, StateDone, status.State)
	assert.Equal(t, 100.0, status.Progress)
	assert.NotNil(t, status.FinishedAt)

	got, ok := runner.Get(run.ID)
	assert.True(t, ok)
	assert.Same(t, run, got)
}

func TestRunnerError(t *testing.T) {
	runner := newTestRunner(4)
	run := runner.Start("learn", func(ctx context.Context, report func(float64)) (any, error) {
		return nil, errors.New("no pattern to learn")
	})

	msgs := collect(t, run)
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageError, msgs[0].Type)
	assert.Equal(t, "no pattern to learn", msgs[0].Error)
	assert.Equal(t, StateError, run.Status().State)
}

func TestRunnerPanicBecomesError(t *testing.T) {
	runner := newTestRunner(4)
	run := runner.Start("audit", func(ctx context.Context, report func(float64)) (any, error) {
		panic("boom")
	})

	msgs := collect(t, run)
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageError, msgs[0].Type)
	assert.Contains(t, msgs[0].Error, "boom")
}

// TestRunnerSlowConsumer переполненный буфер не блокирует задачу, терминальное сообщение доходит
func TestRunnerSlowConsumer(t *testing.T) {
	runner := newTestRunner(2)
	run := runner.Start("cluster", func(ctx context.Context, report func(float64)) (any, error) {
		for i := 1; i <= 100; i++ {
			report(float64(i))
		}
		return 42, nil
	})

	// никто не читает, пока запуск не завершится
	status, err := run.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, status.State)

	msgs := collect(t, run)
	require.Len(t, msgs, 3, "two progress messages and the terminal one")
	assert.Equal(t, MessageDone, msgs[2].Type)

	terminal := 0
	for _, msg := range msgs {
		if msg.Type != MessageProgress {
			terminal++
		}
	}
	assert.Equal(t, 1, terminal)
}

func TestRunnerCancel(t *testing.T) {
	runner := newTestRunner(4)
	started := make(chan struct{})
	run := runner.Start("cluster", func(ctx context.Context, report func(float64)) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	<-started
	run.Cancel()

	msgs := collect(t, run)
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageError, msgs[0].Type)
	assert.Equal(t, context.Canceled.Error(), msgs[0].Error)
}

func TestRunnerShutdown(t *testing.T) {
	runner := newTestRunner(4)
	run := runner.Start("cluster", func(ctx context.Context, report func(float64)) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Shutdown(ctx))

	select {
	case <-run.Done():
	default:
		t.Fatal("run should be finished after shutdown")
	}
}

func TestRunnerRetention(t *testing.T) {
	runner := NewRunner(4, time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	first := runner.Start("audit", func(ctx context.Context, report func(float64)) (any, error) {
		return nil, nil
	})
	_, err := first.Wait(context.Background())
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	runner.Start("audit", func(ctx context.Context, report func(float64)) (any, error) {
		return nil, nil
	})

	_, ok := runner.Get(first.ID)
	assert.False(t, ok, "finished run older than retention should be pruned")
}
