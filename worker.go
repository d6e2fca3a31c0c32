package wbcache

import (
	"context"
	"sync"
	"time"

	"github.com/roomstate/wbcache/docstore"
)

const (
	drainPoll   = 100 * time.Millisecond
	idleWait    = time.Second
	joinTimeout = 5 * time.Second
)

// Worker owns the FIFO queue of pending durable writes and the single
// goroutine that drains it against the durable store. Exactly one consumer
// drains the queue, so mutations for a given key apply in enqueue order.
//
// The queue is unbounded; under sustained durable-store unavailability it
// grows without limit. Watch Len from the host if that matters.
type Worker struct {
	log Logger

	mu      sync.Mutex
	queue   []Task
	running bool
	stopCh  chan struct{}
	done    chan struct{}

	wake chan struct{}
}

func newWorker(log Logger) *Worker {
	return &Worker{log: log, wake: make(chan struct{}, 1)}
}

// Start begins the background drain loop against store.
// Idempotent; a no-op while already running.
func (w *Worker) Start(store docstore.Store) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.run(store, w.stopCh, w.done)
	w.log.Info("background worker started", nil)
}

// Enqueue appends a task. Never blocks; the queue is unbounded.
func (w *Worker) Enqueue(t Task) {
	w.mu.Lock()
	w.queue = append(w.queue, t)
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Len reports the current queue depth.
func (w *Worker) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

func (w *Worker) pop() (Task, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return Task{}, false
	}
	t := w.queue[0]
	w.queue = w.queue[1:]
	return t, true
}

func (w *Worker) run(store docstore.Store, stopCh, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(idleWait)
	defer timer.Stop()
	for {
		// the stop signal halts the loop even with tasks still queued;
		// whatever remains is the reported loss
		select {
		case <-stopCh:
			return
		default:
		}
		if t, ok := w.pop(); ok {
			w.apply(store, t)
			continue
		}
		// idle: wait for work, but wake periodically so the stop signal
		// is observed even without traffic
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(idleWait)
		select {
		case <-stopCh:
			return
		case <-w.wake:
		case <-timer.C:
		}
	}
}

// apply dispatches one task to the durable store. Failures are logged and
// the task discarded; durability is at-most-once by contract.
func (w *Worker) apply(store docstore.Store, t Task) {
	ctx := context.Background()
	var err error
	switch t.Kind {
	case KindSet:
		err = store.Upsert(ctx, t.Collection, t.Key, t.Value, t.CreatedAt)
	case KindDelete:
		err = store.Delete(ctx, t.Collection, t.Key)
	case KindIncrement:
		err = store.IncrementField(ctx, t.Collection, t.Key, t.Field, t.Amount, t.CreatedAt)
	default:
		w.log.Error("unknown task kind", Fields{"kind": t.Kind})
		return
	}
	if err != nil {
		w.log.Error("task apply failed", Fields{
			"kind": t.Kind.String(), "collection": t.Collection, "key": t.Key, "err": err,
		})
		return
	}
	w.log.Debug("task applied", Fields{
		"kind": t.Kind.String(), "collection": t.Collection, "key": t.Key,
	})
}

// Stop drains the queue for up to timeout, polling emptiness at a fixed
// short interval, then halts the loop and joins it. Returns true iff the
// queue was empty when the loop halted; remaining tasks are lost and
// reported. Stopping a worker that never started returns true.
func (w *Worker) Stop(timeout time.Duration) bool {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return true
	}
	stopCh := w.stopCh
	done := w.done
	pending := len(w.queue)
	w.mu.Unlock()

	if pending > 0 {
		w.log.Info("graceful shutdown started", Fields{"pending": pending})
	}

	deadline := time.Now().Add(timeout)
	for w.Len() > 0 {
		if !time.Now().Before(deadline) {
			w.log.Warn("shutdown drain timed out", Fields{
				"remaining": w.Len(), "timeout": timeout,
			})
			break
		}
		time.Sleep(drainPoll)
	}

	w.mu.Lock()
	if w.running {
		w.running = false
		close(stopCh)
	}
	w.mu.Unlock()

	select {
	case <-done:
	case <-time.After(joinTimeout):
		w.log.Warn("worker did not exit before join timeout", nil)
	}

	remaining := w.Len()
	if remaining == 0 {
		w.log.Info("graceful shutdown completed; all tasks processed", nil)
		return true
	}
	w.log.Warn("shutdown completed with tasks lost", Fields{"lost": remaining})
	return false
}
