package relock

import (
	"context"
	"runtime/trace"
	"sync"

	"go.uber.org/zap"
)

// Lock is a reentrant mutual-exclusion lock shared by goroutines,
// which acquire it with Acquire and block, and tasks, which acquire it
// with AcquireTask and suspend.
//
// A Lock is owned by one worker (goroutine) at a time. The owner may
// acquire it again without waiting when the new acquisition is nested
// inside the latest one, as decided by comparing fingerprints: the new
// call chain must end with the chain recorded by the latest
// acquisition. The same worker acquiring from an unrelated call chain
// waits like everyone else, and deadlocks if it is the one holding the
// lock. The same applies when one acquisition uses a WithScope context
// and a nested one does not, or the other way round.
//
// Waiters are not ordered. The zero Lock is unlocked and ready to use.
type Lock struct {
	noCopy noCopy
	mu     sync.Mutex    // guards owner and chain
	owner  WorkerID      // zero iff chain is empty
	chain  []Fingerprint // one entry per held acquisition, top last
	wake   signal        // set on every release
	name   string
	log    *zap.Logger
}

// NewLock creates an unlocked Lock configured by opts.
func NewLock(opts ...Option) *Lock {
	l := new(Lock)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire acquires l, blocking the calling goroutine until it can. ctx
// is consulted for WithScope tokens only; acquisition cannot be
// cancelled.
//
// Tasks must use AcquireTask: blocking inside a task stops its whole
// schedule, including a task that may hold l.
func (l *Lock) Acquire(ctx context.Context) *Guard {
	id, fp := captureFingerprint(ctx)
	for {
		if g, ok := l.attempt(ctx, id, fp); ok {
			return g
		}
		trace.Log(ctx, traceCategory, "LOCK WAIT")
		<-l.wake.C()
	}
}

// AcquireTask acquires l on behalf of the task ctx belongs to,
// suspending the task until it can. Other tasks of the schedule keep
// running meanwhile. The acquisition rules are those of Acquire.
func (l *Lock) AcquireTask(ctx context.Context) *Guard {
	task := MustTaskBaseFromContext(ctx)
	id, fp := captureFingerprint(ctx)
	for {
		if g, ok := l.attempt(ctx, id, fp); ok {
			return g
		}
		task.Log("LOCK WAIT")
		task.Await(l.wake.C())
	}
}

// TryAcquire makes a single attempt to acquire l and never waits. It
// reports whether it succeeded.
func (l *Lock) TryAcquire(ctx context.Context) (*Guard, bool) {
	id, fp := captureFingerprint(ctx)
	return l.attempt(ctx, id, fp)
}

func (l *Lock) attempt(ctx context.Context, id WorkerID, fp Fingerprint) (*Guard, bool) {
	depth, ok := l.tryAcquire(id, fp)
	if !ok {
		return nil, false
	}
	if trace.IsEnabled() {
		trace.Logf(ctx, traceCategory, "LOCK %q ACQUIRED DEPTH %v", l.name, depth)
	}
	return &Guard{lock: l, depth: depth}, true
}

// tryAcquire performs the acquisition transition for worker id with
// fingerprint fp and returns the resulting depth.
func (l *Lock) tryAcquire(id WorkerID, fp Fingerprint) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.init()

	switch {
	case l.owner.IsZero():
		l.owner = id
	case l.owner != id:
		l.log.Debug("contended",
			zap.String("lock", l.name),
			zap.Stringer("worker", id),
			zap.Stringer("owner", l.owner))
		return 0, false
	case !fp.HasSuffix(l.chain[len(l.chain)-1]):
		l.log.Debug("contended",
			zap.String("lock", l.name),
			zap.Stringer("worker", id),
			zap.Stringer("owner", l.owner),
			zap.Stringer("fingerprint", fp),
			zap.Stringer("top", l.chain[len(l.chain)-1]))
		return 0, false
	}

	l.chain = append(l.chain, fp)
	l.check()

	depth := len(l.chain)
	l.log.Debug("acquired",
		zap.String("lock", l.name),
		zap.Stringer("worker", id),
		zap.Int("depth", depth),
		zap.Bool("reentrant", depth > 1))
	return depth, true
}

// release pops the latest acquisition and wakes waiters.
func (l *Lock) release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.chain) == 0 {
		panic("relock: release of unlocked lock")
	}

	l.chain[len(l.chain)-1] = nil
	l.chain = l.chain[:len(l.chain)-1]
	if len(l.chain) == 0 {
		l.owner = WorkerID{}
	}
	l.check()

	l.log.Debug("released",
		zap.String("lock", l.name),
		zap.Int("depth", len(l.chain)))

	l.wake.notify()
}

func (l *Lock) init() {
	if l.wake == nil {
		l.wake = newSignal()
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
}

func (l *Lock) check() {
	if l.owner.IsZero() != (len(l.chain) == 0) {
		panic("relock: invariant violated: owner and chain disagree")
	}
}

// Depth returns the number of acquisitions currently held.
func (l *Lock) Depth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.chain)
}

// Owner returns the worker holding l, if any.
func (l *Lock) Owner() (WorkerID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner, !l.owner.IsZero()
}
