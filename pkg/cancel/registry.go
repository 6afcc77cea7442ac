// Package cancel provides the process-wide registry that maps run ids to
// cancellable tokens. Engines derive their run context from the registry and
// check it cooperatively at page boundaries and before every record, so a
// cancel request stops a run within about one record of work.
package cancel

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// CancelledError marks a run that stopped because its token was cancelled,
// as opposed to failing.
type CancelledError struct {
	SyncID string
}

// Error returns formatted error message
func (e *CancelledError) Error() string {
	return fmt.Sprintf("run %s cancelled", e.SyncID)
}

// Is reports a match against context.Canceled so callers can use errors.Is
// without knowing about this type.
func (e *CancelledError) Is(target error) bool {
	return target == context.Canceled
}

// NewCancelledError creates a CancelledError for the given run.
func NewCancelledError(syncID string) *CancelledError {
	return &CancelledError{SyncID: syncID}
}

// IsCancelled reports whether err represents cooperative cancellation rather
// than a failure.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	var cancelled *CancelledError
	return errors.As(err, &cancelled) || errors.Is(err, context.Canceled)
}

// Registry is the process-wide run cancel registry: sync_id → cancel
// function. Safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]context.CancelFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]context.CancelFunc)}
}

// Register derives a cancellable context for the run and stores its cancel
// function. The caller must call the returned cancel (or Unregister) when
// the run ends.
func (r *Registry) Register(ctx context.Context, syncID string) (context.Context, context.CancelFunc) {
	runCtx, cancelFunc := context.WithCancel(ctx)

	r.mu.Lock()
	r.runs[syncID] = cancelFunc
	r.mu.Unlock()

	return runCtx, func() {
		r.Unregister(syncID)
		cancelFunc()
	}
}

// Unregister removes the run from the registry without cancelling it.
func (r *Registry) Unregister(syncID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, syncID)
}

// Cancel cancels the run's token. Returns true if the run was registered.
// Cancelling twice, or cancelling an unknown run, is a harmless no-op.
func (r *Registry) Cancel(syncID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cancelFunc, ok := r.runs[syncID]; ok {
		cancelFunc()
		return true
	}
	return false
}

// Active returns the ids of currently registered runs.
func (r *Registry) Active() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.runs))
	for id := range r.runs {
		ids = append(ids, id)
	}
	return ids
}

// Check returns a CancelledError when the run context has been cancelled,
// nil otherwise. Engines call this at every suspension point.
func Check(ctx context.Context, syncID string) error {
	select {
	case <-ctx.Done():
		return NewCancelledError(syncID)
	default:
		return nil
	}
}
