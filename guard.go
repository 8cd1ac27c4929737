package relock

import "sync/atomic"

// Guard is a held acquisition of a Lock. Guards only come from a
// successful acquisition; a Guard built any other way panics when
// released.
//
//	g := l.Acquire(ctx)
//	defer g.Release()
type Guard struct {
	noCopy   noCopy
	lock     *Lock
	depth    int
	released atomic.Bool
}

// Release gives up the acquisition. The lock is free once every guard
// of its owner has been released. Releasing a guard twice panics.
func (g *Guard) Release() {
	if g == nil || g.lock == nil {
		panic("relock: release of unacquired guard")
	}
	if !g.released.CompareAndSwap(false, true) {
		panic("relock: guard released twice")
	}
	g.lock.release()
}

// Depth returns the lock depth the guard was acquired at, 1 for the
// outermost acquisition.
func (g *Guard) Depth() int {
	return g.depth
}
