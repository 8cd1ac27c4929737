package relock

import (
	"context"
	"reflect"
	"slices"
	"strings"

	"github.com/DataDog/gostackparse"
	"github.com/google/uuid"
)

// Fingerprint describes the call chain that attempted an acquisition,
// innermost entry first. An acquisition is treated as nested inside
// the one on top of a Lock's stack when its fingerprint ends with that
// acquisition's fingerprint.
//
// Entries are function names taken from the goroutine's stack, or
// scope tokens when the context carries them (see WithScope).
type Fingerprint []string

// HasSuffix reports whether f ends with top. Every fingerprint ends
// with the empty fingerprint.
func (f Fingerprint) HasSuffix(top Fingerprint) bool {
	if len(top) > len(f) {
		return false
	}
	return slices.Equal(f[len(f)-len(top):], top)
}

func (f Fingerprint) String() string {
	return strings.Join(f, " < ")
}

var (
	pkgPrefix = reflect.TypeOf((*Lock)(nil)).Elem().PkgPath() + "."

	// entryFuncs are the exported acquisition methods. Frames up to
	// and including the first of them belong to the lock.
	entryFuncs = map[string]struct{}{
		pkgPrefix + "(*Lock).Acquire":     {},
		pkgPrefix + "(*Lock).AcquireTask": {},
		pkgPrefix + "(*Lock).TryAcquire":  {},
	}

	// plumbingPrefixes match the outermost frames every task or
	// goroutine shares regardless of what it does.
	plumbingPrefixes = []string{
		"runtime.",
		"github.com/webriots/coro.",
		pkgPrefix + "newTask",
		pkgPrefix + "loop",
		pkgPrefix + "(*Schedule).Fn",
	}
)

// captureFingerprint returns the calling goroutine's WorkerID and the
// fingerprint of the current call chain.
func captureFingerprint(ctx context.Context) (WorkerID, Fingerprint) {
	g := currentGoroutine()
	id := workers.lookup(g.id)

	if fp := scopeFingerprint(ctx); len(fp) > 0 {
		return id, fp
	}
	return id, stackFingerprint(g.frames)
}

func stackFingerprint(frames []*gostackparse.Frame) Fingerprint {
	fp := make(Fingerprint, 0, len(frames))
	for _, f := range frames {
		fp = append(fp, f.Func)
	}
	return trimFingerprint(fp)
}

// trimFingerprint strips the lock's own frames from the inner end of
// fp and the scheduling plumbing from its outer end.
func trimFingerprint(fp Fingerprint) Fingerprint {
	inner := -1
	for i, fn := range fp {
		if _, ok := entryFuncs[fn]; ok {
			inner = i
			break
		}
	}
	if inner >= 0 {
		fp = fp[inner+1:]
	} else {
		for len(fp) > 0 && strings.HasPrefix(fp[0], pkgPrefix) {
			fp = fp[1:]
		}
	}

	for len(fp) > 0 && isPlumbing(fp[len(fp)-1]) {
		fp = fp[:len(fp)-1]
	}

	return fp
}

func isPlumbing(fn string) bool {
	for _, prefix := range plumbingPrefixes {
		if strings.HasPrefix(fn, prefix) {
			return true
		}
	}
	return false
}

// scopeContextKey is the context key of the innermost scope.
type scopeContextKey struct{}

type scope struct {
	token  string
	parent *scope
}

// WithScope returns a copy of ctx that opens a new acquisition scope
// nested in the scopes ctx already carries. When a context carries
// scopes, acquisitions made with it are fingerprinted by those scopes
// instead of by the stack: an acquisition made with ctx, or with a
// context derived from it, is nested inside one made with ctx, while
// two contexts returned by separate WithScope calls on the same parent
// are unrelated.
//
// Scopes follow a call chain across suspension points and goroutine
// hops, which stack fingerprints cannot. Ownership is still per
// worker.
//
// Pass the scoped context down the whole chain: a scoped acquisition
// and an unscoped one never match, so a worker mixing them waits for
// itself.
func WithScope(ctx context.Context) context.Context {
	parent, _ := ctx.Value(scopeContextKey{}).(*scope)
	return context.WithValue(ctx, scopeContextKey{}, &scope{
		token:  "scope:" + uuid.NewString(),
		parent: parent,
	})
}

func scopeFingerprint(ctx context.Context) Fingerprint {
	var fp Fingerprint
	s, _ := ctx.Value(scopeContextKey{}).(*scope)
	for ; s != nil; s = s.parent {
		fp = append(fp, s.token)
	}
	return fp
}
