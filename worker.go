package relock

import (
	"sync"

	"github.com/google/uuid"
)

// WorkerID identifies a goroutine. It is generated at random the first
// time the goroutine asks for it and stays the same for the rest of
// the goroutine's life. The zero WorkerID identifies no goroutine.
type WorkerID uuid.UUID

// IsZero reports whether w is the zero WorkerID.
func (w WorkerID) IsZero() bool {
	return w == WorkerID{}
}

func (w WorkerID) String() string {
	return uuid.UUID(w).String()
}

// workerRegistry maps goroutine ids to their WorkerIDs. Entries are
// never removed: the runtime does not reuse goroutine ids, and a
// WorkerID must not be handed out twice while the process lives.
type workerRegistry struct {
	mu  sync.Mutex
	ids map[int]WorkerID
	set map[WorkerID]struct{}
}

var workers = &workerRegistry{
	ids: make(map[int]WorkerID),
	set: make(map[WorkerID]struct{}),
}

// lookup returns the WorkerID of goroutine gid, creating it if needed.
func (r *workerRegistry) lookup(gid int) WorkerID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[gid]; ok {
		return id
	}

	var id WorkerID
	for {
		id = WorkerID(uuid.New())
		if _, dup := r.set[id]; !dup && !id.IsZero() {
			break
		}
	}

	r.ids[gid] = id
	r.set[id] = struct{}{}
	return id
}

// CurrentWorker returns the WorkerID of the calling goroutine.
func CurrentWorker() WorkerID {
	return workers.lookup(currentGoroutineID())
}
