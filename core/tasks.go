package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/gitlegend/gitlegend/internal/contract"
)

// Task is the handle of one background analysis run.
type Task struct {
	AnalysisID   string
	RepositoryID string

	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// Done is closed once the run has reached a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the run finishes or ctx is done, whichever comes first.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel asks the run to stop. The run is marked FAILED once it notices.
func (t *Task) Cancel() {
	t.cancel()
}

// Err returns the error the run ended with, or nil while it is running or when it succeeded.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.done)
}

// TaskRunner owns the goroutines of background runs and allows at most one
// active run per repository.
type TaskRunner struct {
	mu     sync.Mutex
	active map[string]*Task
	wg     sync.WaitGroup
}

// NewTaskRunner creates an empty runner.
func NewTaskRunner() *TaskRunner {
	return &TaskRunner{active: make(map[string]*Task)}
}

// Submit starts fn on its own goroutine. The run context is detached from the
// cancellation of ctx so that it outlives the request that triggered it; only
// Task.Cancel and Shutdown stop it.
func (r *TaskRunner) Submit(ctx context.Context, repositoryID, analysisID string, fn func(ctx context.Context) error) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if running, ok := r.active[repositoryID]; ok {
		return nil, fmt.Errorf("repository %s (run %s): %w", repositoryID, running.AnalysisID, contract.ErrAnalysisInProgress)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	task := &Task{
		AnalysisID:   analysisID,
		RepositoryID: repositoryID,
		done:         make(chan struct{}),
		cancel:       cancel,
	}
	r.active[repositoryID] = task

	r.wg.Go(func() {
		defer cancel()
		err := fn(runCtx)

		r.mu.Lock()
		delete(r.active, repositoryID)
		r.mu.Unlock()

		task.finish(err)
	})
	return task, nil
}

// Active returns the in-flight run of a repository.
func (r *TaskRunner) Active(repositoryID string) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.active[repositoryID]
	return task, ok
}

// Shutdown cancels every active run and waits for them to finish or for ctx to end.
func (r *TaskRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for _, task := range r.active {
		task.Cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
