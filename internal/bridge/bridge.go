package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is the remote session handle owned by the bridge. The
// concrete type is *remote.Client in production and a fake in tests.
type Session interface {
	Close() error
}

// Op is one remote operation. It runs on the bridge's single worker,
// so it may use the session freely without locking.
type Op func(ctx context.Context, s Session) (any, error)

// RemoteOperationError wraps a failure inside a submitted operation.
// It is delivered only to the submitter; the worker and every other
// in-flight operation are unaffected.
type RemoteOperationError struct {
	OpID uuid.UUID
	Err  error
}

func (e *RemoteOperationError) Error() string {
	return fmt.Sprintf("remote operation %s: %v", e.OpID, e.Err)
}

func (e *RemoteOperationError) Unwrap() error { return e.Err }

// ErrShuttingDown is returned to submitters when the bridge has been
// shut down.
var ErrShuttingDown = errors.New("bridge: shutting down")

// shutdownBudget bounds how long Shutdown waits for unsubscriptions
// and in-flight work before giving up. Errors past the budget are
// swallowed, never propagated.
const shutdownBudget = 2 * time.Second

type result struct {
	value any
	err   error
}

type task struct {
	id   uuid.UUID
	op   Op
	done chan result // buffered: a submitter that stopped waiting never blocks the worker
}

// Bridge owns the single background worker and the single remote
// session. Construct with New, then Init (idempotent) before Submit.
type Bridge struct {
	dial func(ctx context.Context) (Session, error)

	initOnce sync.Once
	initErr  error
	session  Session
	started  atomic.Bool
	queue    *opQueue
	stopped  chan struct{}

	mu       sync.Mutex
	cleanups []func(ctx context.Context) error
}

// New creates a bridge that will establish its remote session with
// dial on the first Init.
func New(dial func(ctx context.Context) (Session, error)) *Bridge {
	return &Bridge{
		dial:    dial,
		queue:   newOpQueue(),
		stopped: make(chan struct{}),
	}
}

// Init establishes the remote session and starts the worker. Only the
// first call dials; later calls observe the already-initialized
// session (or the first call's error).
func (b *Bridge) Init(ctx context.Context) error {
	b.initOnce.Do(func() {
		s, err := b.dial(ctx)
		if err != nil {
			b.initErr = fmt.Errorf("bridge init: %w", err)
			return
		}
		b.session = s
		b.started.Store(true)
		go b.run()
	})
	return b.initErr
}

// ErrNotInitialized is returned by Submit before a successful Init.
var ErrNotInitialized = errors.New("bridge: not initialized")

// Submit enqueues op and blocks until that specific operation
// completes, returning its result or error. Operations from different
// callers only wait on the worker's first-submitted, first-run
// serialization, never on each other's results. Cancellation is not
// supported: a caller that stops waiting leaves the operation to run
// to completion with its result discarded.
func (b *Bridge) Submit(op Op) (any, error) {
	if !b.started.Load() {
		return nil, ErrNotInitialized
	}
	t := &task{
		id:   uuid.New(),
		op:   op,
		done: make(chan result, 1),
	}
	if !b.queue.Enqueue(t) {
		return nil, ErrShuttingDown
	}
	r := <-t.done
	return r.value, r.err
}

// RegisterCleanup records a best-effort shutdown action, typically a
// change-feed unsubscription.
func (b *Bridge) RegisterCleanup(fn func(ctx context.Context) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanups = append(b.cleanups, fn)
}

// run is the worker loop: single goroutine, operations strictly in
// submission order, failures contained per operation.
func (b *Bridge) run() {
	defer close(b.stopped)
	for {
		t, ok := b.queue.TryDequeue()
		if !ok {
			if _, open := <-b.queue.Wait(); !open {
				// Queue closed: fail whatever raced in.
				for _, t := range b.queue.Drain() {
					t.done <- result{err: ErrShuttingDown}
				}
				return
			}
			continue
		}
		t.done <- b.execute(t)
	}
}

// execute runs one operation, containing both errors and panics so a
// misbehaving operation can never terminate the shared worker.
func (b *Bridge) execute(t *task) (r result) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("remote operation panicked", "op", t.id, "panic", p)
			r = result{err: &RemoteOperationError{OpID: t.id, Err: fmt.Errorf("panic: %v", p)}}
		}
	}()

	v, err := t.op(context.Background(), b.session)
	if err != nil {
		return result{err: &RemoteOperationError{OpID: t.id, Err: err}}
	}
	return result{value: v}
}

// Shutdown runs the registered cleanups within the shutdown budget,
// then stops the worker and closes the session. Best-effort by
// contract: timeouts and cleanup errors are logged and swallowed.
func (b *Bridge) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownBudget)
	defer cancel()

	b.mu.Lock()
	cleanups := b.cleanups
	b.cleanups = nil
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, fn := range cleanups {
			if err := fn(ctx); err != nil {
				slog.Warn("shutdown cleanup failed", "err", err)
			}
		}
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("shutdown budget exceeded; abandoning cleanups")
	}

	b.queue.Close()
	if b.session != nil {
		<-b.stopped // worker has drained and exited
		if err := b.session.Close(); err != nil {
			slog.Warn("closing remote session", "err", err)
		}
	}
}
