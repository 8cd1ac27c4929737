package relock

import (
	"context"
	"fmt"
	"runtime/trace"
	"strings"
	"time"

	"github.com/webriots/coro"
)

const (
	taskTraceTaskType   = "relock-task"
	taskTraceRegionType = "relock-region"
	traceCategory       = "relock"
)

// closedchan is always ready; awaiting it yields to the loop.
var closedchan = make(chan struct{})

func init() {
	close(closedchan)
}

// Task is a coroutine scheduled by a Schedule. A task runs until it
// reaches a suspension point (Await, Yield, Sleep, or Wait with
// unfinished children) and is resumed by the schedule's loop. A task
// does not finish before all of its children have.
type Task struct {
	ctx     context.Context
	suspend func() struct{}
	resume  func(struct{}) (struct{}, bool)
	cancel  func()
	parkq   *parkQueue
	sched   *Schedule
	parent  *Task
	childn  int
	norun   bool
}

// TaskBase is the part of a Task that synchronization primitives
// depend on.
type TaskBase interface {
	Go(func(context.Context))
	Wait()
	Await(<-chan struct{})
	Yield()
	Sleep(time.Duration)

	Log(string)
	Logf(string, ...any)

	parenttask() TaskBase
}

func loop(
	ctx context.Context,
	fn func(context.Context, *Task),
	sched *Schedule,
) {
	var tracer *trace.Task

	ctx, tracer = trace.NewTask(ctx, taskTraceTaskType)
	defer tracer.End()

	t := newTask(ctx, fn, nil)
	t.sched = sched
	defer t.cancel()

	trace.Log(ctx, traceCategory, "LOOP")

	for t.resumez() {
		for pending := 0; t.parkq.len() > 0 || pending > 0; {
			trace.Logf(ctx, traceCategory, "LOOP PARKED %v PENDING %v", t.parkq.len(), pending)

			pending += t.parkq.dispatch(sched.woken)

			trace.Log(ctx, traceCategory, "PARK WAIT")
			task := <-sched.woken

		again:
			pending--
			task.Log("WOKEN")
			task.setnorun(false)
			task.run()

			select {
			case task = <-sched.woken:
				goto again
			default:
			}
		}
	}

	if t.childn > 0 {
		panic("relock: task.childn > 0")
	}

	trace.Log(ctx, traceCategory, "LOOP DONE")
}

func newTask(
	ctx context.Context,
	fn func(context.Context, *Task),
	parent *Task,
) *Task {
	task := &Task{
		parent: parent,
	}

	if task.parent == nil {
		task.parkq = newParkQueue()
	} else {
		task.parkq = task.parent.parkq
		task.sched = task.parent.sched
		task.parent.childn++
	}

	task.ctx = withTaskContext(ctx, task)

	resume, cancel := coro.New(
		func(_ func(struct{}) struct{}, suspend func() struct{}) (z struct{}) {
			region := trace.StartRegion(task.ctx, taskTraceRegionType)

			defer func() {
				if task.parent != nil {
					task.parent.childn--
				}
				region.End()
			}()

			task.suspend = suspend

			fn(task.ctx, task)
			task.Wait()

			return
		},
	)

	task.resume = resume
	task.cancel = cancel
	return task
}

func (t *Task) gogoctx(ctx context.Context, fn func(context.Context, *Task)) {
	task := newTask(ctx, fn, t)
	task.Log("GO")
	task.resumez()
}

// Gogo starts a child task running fn. The child runs immediately
// until its first suspension point, then control returns to t.
func (t *Task) Gogo(fn func(context.Context, *Task)) {
	t.gogoctx(t.ctx, fn)
}

// Go is like Gogo for functions that find their task through the
// context.
func (t *Task) Go(fn func(context.Context)) {
	t.Gogo(t.sched.Fn(fn))
}

// GoWithContext is like Go but runs fn with ctx, which must belong to
// t. It lets a child inherit values, such as WithScope tokens, that
// were added after t started.
func (t *Task) GoWithContext(ctx context.Context, fn func(context.Context)) {
	if task := MustTaskBaseFromContext(ctx); task != TaskBase(t) {
		panic("relock: ctx task does not match task")
	}
	t.gogoctx(ctx, t.sched.Fn(fn))
}

// Await suspends t until ch can be received from. The receive is
// performed on t's behalf, so a value sent on ch is consumed by it.
func (t *Task) Await(ch <-chan struct{}) {
	t.Log("AWAIT")

	t.parkq.add(t, ch)
	t.setnorun(true)
	t.suspend()
}

// Yield suspends t and lets the loop run other ready tasks before
// resuming it.
func (t *Task) Yield() {
	t.Await(closedchan)
}

// Sleep suspends t for at least d.
func (t *Task) Sleep(d time.Duration) {
	ch := make(chan struct{})
	time.AfterFunc(d, func() { close(ch) })
	t.Await(ch)
}

// Wait suspends t until all of its children have finished.
func (t *Task) Wait() {
	t.Log("WAIT")

	if t.childn > 0 {
		t.suspend()
	}
}

func (t *Task) run() {
	t.Log("RUN")

	if t.resumez() {
		return
	}

	if t.parent == nil {
		return
	}

	if t.parent.norun {
		return
	}

	if t.parent.childn == 0 {
		t.parent.run()
	}
}

func (t *Task) resumez() bool {
	_, ok := t.resume(struct{}{})
	return ok
}

func (t *Task) setnorun(b bool) {
	t.norun = b
}

func (t *Task) parenttask() TaskBase {
	if t.parent == nil {
		return nil
	}
	return t.parent
}

func (t *Task) Log(msg string) {
	if trace.IsEnabled() {
		var sb strings.Builder
		taskpath(&sb, t)
		sb.WriteRune(' ')
		sb.WriteString(msg)
		trace.Log(t.ctx, traceCategory, sb.String())
	}
}

func (t *Task) Logf(format string, args ...any) {
	if trace.IsEnabled() {
		var sb strings.Builder
		taskpath(&sb, t)
		sb.WriteRune(' ')
		fmt.Fprintf(&sb, format, args...)
		trace.Log(t.ctx, traceCategory, sb.String())
	}
}

func taskpath(sb *strings.Builder, t TaskBase) {
	if t == nil {
		return
	}
	taskpath(sb, t.parenttask())
	fmt.Fprintf(sb, "%p|", t)
}
