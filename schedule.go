package relock

import (
	"context"
)

const (
	// ScheduleWakeBuffer is the number of woken tasks that may be
	// queued for the scheduler loop before the goroutines reporting
	// them block.
	ScheduleWakeBuffer = 128
)

// Schedule drives a tree of tasks. Every task of a schedule runs on
// the goroutine that called Resume, one at a time; a task gives up
// control only at a suspension point.
type Schedule struct {
	woken chan *Task
}

// NewSchedule creates an empty Schedule.
func NewSchedule() *Schedule {
	return &Schedule{
		woken: make(chan *Task, ScheduleWakeBuffer),
	}
}

// Resumable is a root task function bound to a Schedule, waiting to
// be started by Resume.
type Resumable struct {
	fn    func(context.Context, *Task)
	sched *Schedule
}

// Run binds fn to the schedule as its root task.
func (s *Schedule) Run(fn func(context.Context, *Task)) *Resumable {
	return &Resumable{fn: fn, sched: s}
}

// Go is like Run for functions that find their task through the
// context.
func (s *Schedule) Go(fn func(context.Context)) *Resumable {
	return s.Run(s.Fn(fn))
}

// Resume runs the root task and everything it spawns on the calling
// goroutine, returning once all of them have finished.
func (r *Resumable) Resume(ctx context.Context) {
	rctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loop(rctx, r.fn, r.sched)
}

// Fn adapts a context-only function to the Task-based signature.
func (s *Schedule) Fn(fn func(context.Context)) func(context.Context, *Task) {
	return func(ctx context.Context, _ *Task) { fn(ctx) }
}
