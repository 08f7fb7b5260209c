package evolution

import (
	"context"
	"log"
	"sync"
	"time"
)

// Callback is invoked on each evolution tick for a running thread.
type Callback func(ctx context.Context, threadID string) error

// Runner drives periodic evolution of active threads. Each started thread
// gets its own goroutine that wakes on an interval, reloads the thread, and
// invokes the callback while the thread remains active.
type Runner struct {
	mgr *Manager

	mu    sync.Mutex
	tasks map[string]*task
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a Runner over the given manager.
func NewRunner(mgr *Manager) *Runner {
	return &Runner{
		mgr:   mgr,
		tasks: make(map[string]*task),
	}
}

// Start begins periodic evolution of a thread.
//
// Fails if the thread does not exist. Starting an already-running thread is
// a no-op. The callback runs once immediately and then on every interval
// tick; callback errors are logged and the loop continues. The loop stops on
// its own when the thread disappears or leaves the active status.
func (r *Runner) Start(ctx context.Context, threadID string, cb Callback, interval time.Duration) error {
	if _, err := r.mgr.Thread(ctx, threadID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, running := r.tasks[threadID]; running {
		log.Printf("[Evolution] Thread %s already evolving", threadID)
		return nil
	}

	taskCtx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}
	r.tasks[threadID] = t

	go r.evolveLoop(taskCtx, threadID, cb, interval, t.done)

	log.Printf("[Evolution] Started evolving thread %s every %v", threadID, interval)
	return nil
}

// Stop halts evolution of a thread. It returns only after the thread's loop
// goroutine has exited. Stopping a thread that is not running is a no-op.
func (r *Runner) Stop(threadID string) {
	r.mu.Lock()
	t, ok := r.tasks[threadID]
	if ok {
		delete(r.tasks, threadID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	t.cancel()
	<-t.done
	log.Printf("[Evolution] Stopped evolving thread %s", threadID)
}

// Shutdown stops every running thread and waits for all loops to exit.
func (r *Runner) Shutdown() {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = make(map[string]*task)
	r.mu.Unlock()

	for threadID, t := range tasks {
		t.cancel()
		<-t.done
		log.Printf("[Evolution] Stopped evolving thread %s", threadID)
	}
}

func (r *Runner) evolveLoop(ctx context.Context, threadID string, cb Callback, interval time.Duration, done chan struct{}) {
	defer close(done)
	defer r.forget(threadID)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		thread, err := r.mgr.Thread(ctx, threadID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[Evolution] Thread %s no longer loadable, stopping evolution: %v", threadID, err)
			return
		}
		if thread.Status != ThreadActive {
			log.Printf("[Evolution] Thread %s is no longer active, stopping evolution", threadID)
			return
		}

		if err := cb(ctx, threadID); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[Evolution] Error in evolution loop for %s: %v", threadID, err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// forget removes the task entry when a loop exits on its own. Stop and
// Shutdown remove the entry themselves before waiting.
func (r *Runner) forget(threadID string) {
	r.mu.Lock()
	delete(r.tasks, threadID)
	r.mu.Unlock()
}
