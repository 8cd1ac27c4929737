package relock

import (
	"context"
)

// taskContextKey is the context key under which a Task stores itself.
type taskContextKey struct{}

// withTaskContext returns a copy of ctx carrying task.
func withTaskContext(ctx context.Context, task *Task) context.Context {
	return context.WithValue(ctx, taskContextKey{}, task)
}

// TaskFromContext returns the Task that ctx was derived from, if any.
func TaskFromContext(ctx context.Context) (*Task, bool) {
	val, ok := ctx.Value(taskContextKey{}).(*Task)
	return val, ok
}

// TaskBaseFromContext is like TaskFromContext but returns the task as
// a TaskBase.
func TaskBaseFromContext(ctx context.Context) (TaskBase, bool) {
	val, ok := ctx.Value(taskContextKey{}).(TaskBase)
	return val, ok
}

// MustTaskBaseFromContext is like TaskBaseFromContext but panics when
// ctx does not belong to a task. Suspending operations use it, since
// they have nothing to suspend otherwise.
func MustTaskBaseFromContext(ctx context.Context) TaskBase {
	val, ok := ctx.Value(taskContextKey{}).(TaskBase)
	if !ok {
		panic("relock: task base not found in context")
	}
	return val
}
