package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"whatsbot/internal/metrics"
	"whatsbot/internal/retry"
)

const (
	defaultMaxAttempts = 5
	subjectPrefix      = "whatsbot.tasks."
	deadLetterPrefix   = "whatsbot.dead."
	flushTimeout       = 5 * time.Second
)

// NewNATS returns a Queue backed by core NATS subjects. Workers of one task
// type share a queue group, so each task is delivered to a single worker.
func NewNATS(log *slog.Logger, nc *nats.Conn) Queue {
	return &natsQueue{log: log, nc: nc, retryBase: time.Second}
}

type natsQueue struct {
	log       *slog.Logger
	nc        *nats.Conn
	retryBase time.Duration
}

func subject(t TaskType) string {
	return subjectPrefix + string(t)
}

func deadLetterSubject(t TaskType) string {
	return deadLetterPrefix + string(t)
}

// Enqueue publishes task and waits for the server to acknowledge the flush.
func (q *natsQueue) Enqueue(ctx context.Context, task Task) error {
	if task.Type == "" {
		return errors.New("task type required")
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if err := q.publish(subject(task.Type), task); err != nil {
		return err
	}
	// FlushWithContext requires a deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	return q.nc.FlushWithContext(ctx)
}

func (q *natsQueue) publish(subj string, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", task.ID, err)
	}
	if err := q.nc.Publish(subj, body); err != nil {
		return fmt.Errorf("publish %s: %w", subj, err)
	}
	return nil
}

// Worker delivers tasks of taskType to handler until ctx is done. The NATS
// client runs handler serially on its own goroutine with the library's
// default pending limits. Failed tasks are republished with a backoff until
// MaxAttempts, then moved to the dead-letter subject.
func (q *natsQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	w := &worker{q: q, handler: handler, parked: make(map[uuid.UUID]parkedTask)}
	group := "workers-" + string(taskType)
	sub, err := q.nc.QueueSubscribe(subject(taskType), group, func(msg *nats.Msg) {
		w.consume(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject(taskType), err)
	}

	q.log.Info("worker subscribed", "subject", subject(taskType), "group", group)
	<-ctx.Done()
	err = sub.Unsubscribe()
	w.release()
	return err
}

// worker holds the tasks one Worker call has parked until their NotBefore.
type worker struct {
	q       *natsQueue
	handler Handler

	mu     sync.Mutex
	parked map[uuid.UUID]parkedTask
	closed bool
}

type parkedTask struct {
	task  Task
	timer *time.Timer
}

func (w *worker) consume(ctx context.Context, msg *nats.Msg) {
	q := w.q
	var task Task
	if err := json.Unmarshal(msg.Data, &task); err != nil {
		q.log.Error("discarding undecodable task", "subject", msg.Subject, "err", err)
		return
	}
	if wait := time.Until(task.NotBefore); wait > 0 {
		w.park(task, wait)
		return
	}

	err := w.handler(ctx, task)
	if err == nil {
		metrics.QueueTasks.WithLabelValues(string(task.Type), metrics.OutcomeSuccess).Inc()
		return
	}

	next, retryable := reschedule(task, time.Now(), q.retryBase)
	if !retryable {
		metrics.QueueTasks.WithLabelValues(string(task.Type), metrics.OutcomeDead).Inc()
		q.log.Error("task permanently failed", "id", task.ID, "type", task.Type, "attempts", next.Attempts, "err", err)
		if pubErr := q.publish(deadLetterSubject(task.Type), next); pubErr != nil {
			q.log.Error("failed to dead-letter task", "id", task.ID, "err", pubErr)
		}
		return
	}

	metrics.QueueTasks.WithLabelValues(string(task.Type), metrics.OutcomeRetry).Inc()
	q.log.Warn("task failed, retrying", "id", task.ID, "type", task.Type, "attempt", next.Attempts, "not_before", next.NotBefore, "err", err)
	if pubErr := q.Enqueue(context.WithoutCancel(ctx), next); pubErr != nil {
		q.log.Error("failed to re-enqueue task", "id", task.ID, "err", pubErr, "handler_err", err)
	}
}

// park republishes task once it is due.
func (w *worker) park(task Task, wait time.Duration) {
	metrics.QueueTasks.WithLabelValues(string(task.Type), metrics.OutcomeDeferred).Inc()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.republish(task)
		return
	}
	timer := time.AfterFunc(wait, func() {
		w.mu.Lock()
		_, ok := w.parked[task.ID]
		delete(w.parked, task.ID)
		w.mu.Unlock()
		if ok {
			w.republish(task)
		}
	})
	w.parked[task.ID] = parkedTask{task: task, timer: timer}
}

// release hands parked tasks back to the subject so another worker picks
// them up. They keep their NotBefore.
func (w *worker) release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for id, p := range w.parked {
		// A timer that already fired republishes the task itself.
		if !p.timer.Stop() {
			continue
		}
		delete(w.parked, id)
		w.q.log.Info("releasing parked task", "id", id, "not_before", p.task.NotBefore)
		w.republish(p.task)
	}
}

func (w *worker) republish(task Task) {
	if err := w.q.Enqueue(context.Background(), task); err != nil {
		w.q.log.Error("failed to republish parked task", "id", task.ID, "err", err)
	}
}

// reschedule records a failed attempt. It reports false once the task has
// used all of its attempts.
func reschedule(task Task, now time.Time, base time.Duration) (Task, bool) {
	task.Attempts++
	if task.MaxAttempts <= 0 {
		task.MaxAttempts = defaultMaxAttempts
	}
	if task.Attempts >= task.MaxAttempts {
		return task, false
	}
	task.NotBefore = now.Add(retry.ExponentialBackoff(task.Attempts, base))
	return task, true
}
