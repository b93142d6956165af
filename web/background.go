package web

import (
	"context"
	"fmt"
	"log/slog"
)

// TaskFunc is a deferred, best-effort side effect executed after the
// response has been fully handed to the transport.
type TaskFunc func(ctx context.Context) error

// Task is an owned callable plus a name used when logging failures.
type Task struct {
	Name string
	Func TaskFunc
}

// Tasks is an ordered batch of background tasks attached to a response.
// Tasks run sequentially in the order added; a failing or panicking task
// is logged and does not prevent later tasks in the batch from running.
type Tasks struct {
	tasks []Task
}

// NewTasks returns a batch pre-populated with the given tasks.
func NewTasks(tasks ...Task) *Tasks {
	return &Tasks{tasks: tasks}
}

// Add appends a task to the batch.
func (t *Tasks) Add(name string, fn TaskFunc) {
	t.tasks = append(t.tasks, Task{Name: name, Func: fn})
}

// Len returns the number of tasks in the batch.
func (t *Tasks) Len() int {
	if t == nil {
		return 0
	}
	return len(t.tasks)
}

// Run executes every task in order. Failures are logged against the given
// logger and never surfaced to the client: by the time tasks run, the
// response is already on the wire. A nil logger falls back to
// slog.Default.
func (t *Tasks) Run(ctx context.Context, logger *slog.Logger) {
	if t == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	for _, task := range t.tasks {
		if err := runTask(ctx, task); err != nil {
			logger.Error("background task failed",
				slog.String("task", task.Name),
				slog.Any("error", err))
		}
	}
}

// runTask invokes one task, converting a panic into an error so the rest
// of the batch still runs.
func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("panic: %v", v)
		}
	}()
	return task.Func(ctx)
}
