package relock

import "github.com/gammazero/deque"

// parked is a task suspended until ch becomes readable.
type parked struct {
	task *Task
	ch   <-chan struct{}
}

// wait blocks until the task's channel is readable, then hands the
// task back to the scheduler loop. It runs on its own goroutine so
// that channels fed by blocking goroutines can wake tasks.
func (p parked) wait(woken chan<- *Task) {
	<-p.ch
	woken <- p.task
}

// parkQueue collects tasks that suspended since the scheduler loop
// last regained control. It is shared by all tasks of a schedule and
// only touched while one of them, or the loop, is running.
type parkQueue struct {
	q deque.Deque[parked]
}

func newParkQueue() *parkQueue {
	return new(parkQueue)
}

func (pq *parkQueue) add(task *Task, ch <-chan struct{}) {
	pq.q.PushBack(parked{task: task, ch: ch})
}

// dispatch starts a waiter for every queued task and empties the
// queue. It returns the number of waiters started.
func (pq *parkQueue) dispatch(woken chan<- *Task) int {
	n := pq.q.Len()
	for pq.q.Len() > 0 {
		go pq.q.PopFront().wait(woken)
	}
	return n
}

func (pq *parkQueue) len() int {
	return pq.q.Len()
}
