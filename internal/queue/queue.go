// Package queue runs note generation tasks one at a time in FIFO
// order. A single worker goroutine drains an unbounded in-process
// queue; a failing or panicking task marks its note failed and never
// stops the worker.
package queue

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"noteflow/internal/providers"
)

// Task is one unit of generation work.
type Task struct {
	NoteID string
	Kind   string
	Run    func(ctx context.Context) error
}

// NoteFailer marks a note as failed when its task does not complete.
type NoteFailer interface {
	FailNote(ctx context.Context, noteID string) error
}

type Queue struct {
	log    *zap.Logger
	failer NoteFailer

	mu      sync.Mutex
	cond    *sync.Cond
	pending []Task
	closed  bool

	done chan struct{}
}

func New(failer NoteFailer, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	q := &Queue{log: log, failer: failer, done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a task without blocking. Tasks enqueued after Close
// are rejected and their notes marked failed.
func (q *Queue) Enqueue(task Task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.failNote(context.Background(), task.NoteID)
		return fmt.Errorf("queue closed")
	}
	q.pending = append(q.pending, task)
	q.cond.Signal()
	q.mu.Unlock()
	return nil
}

// Len reports the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Start launches the worker. It drains tasks until ctx is cancelled,
// then marks any still-pending tasks failed and closes Done().
func (q *Queue) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		q.mu.Lock()
		q.closed = true
		q.cond.Signal()
		q.mu.Unlock()
	}()
	go q.work(ctx)
}

// Done is closed once the worker has stopped.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

func (q *Queue) work(ctx context.Context) {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			orphans := q.pending
			q.pending = nil
			q.mu.Unlock()
			for _, t := range orphans {
				q.failNote(context.Background(), t.NoteID)
			}
			return
		}
		task := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.runOne(ctx, task)
	}
}

func (q *Queue) runOne(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("task panicked",
				zap.String("note_id", task.NoteID),
				zap.String("kind", task.Kind),
				zap.Any("panic", r))
			q.failNote(ctx, task.NoteID)
		}
	}()
	q.log.Info("task started", zap.String("note_id", task.NoteID), zap.String("kind", task.Kind))
	if err := task.Run(ctx); err != nil {
		q.log.Error("task failed",
			zap.String("note_id", task.NoteID),
			zap.String("kind", task.Kind),
			zap.String("error_type", string(providers.ClassifyError(err))),
			zap.Error(err))
		q.failNote(ctx, task.NoteID)
		return
	}
	q.log.Info("task completed", zap.String("note_id", task.NoteID), zap.String("kind", task.Kind))
}

func (q *Queue) failNote(ctx context.Context, noteID string) {
	if q.failer == nil || noteID == "" {
		return
	}
	if err := q.failer.FailNote(ctx, noteID); err != nil {
		q.log.Error("mark note failed", zap.String("note_id", noteID), zap.Error(err))
	}
}
