// Package relock provides a reentrant mutual-exclusion lock that can
// be acquired both from ordinary goroutines, which block, and from
// coroutine tasks, which suspend. Both kinds of callers may share one
// Lock.
//
// Key components:
//
//   - Lock: The lock itself. It records the owning worker and a stack
//     of fingerprints, one per nested acquisition.
//
//   - Guard: The handle returned by a successful acquisition. Release
//     it exactly once, usually with defer.
//
//   - WorkerID: A random identity bound to a goroutine the first time
//     it is observed. Ownership is always checked against it.
//
//   - Fingerprint: A description of the calling chain, used to tell a
//     nested acquisition apart from an unrelated one made by the same
//     worker. By default it is derived from the goroutine's stack;
//     contexts carrying WithScope tokens use those tokens instead.
//
//   - Schedule and Task: A cooperative scheduler built on coroutines.
//     Tasks suspend at Await, Yield, Sleep and Wait, and acquire a Lock
//     with AcquireTask.
//
// Reentrancy detection is a heuristic. It prefers treating two calls
// as independent (and making one wait) over treating them as nested.
package relock
