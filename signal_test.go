package relock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ready(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestSignalSingleSlot(t *testing.T) {
	r := require.New(t)

	s := newSignal()
	r.False(ready(s.C()))

	s.notify()
	s.notify()
	s.notify()

	r.True(ready(s.C()))
	r.False(ready(s.C()))
}

func TestSignalWakesWaiter(t *testing.T) {
	r := require.New(t)

	s := newSignal()
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-s.C()
	}()

	time.Sleep(time.Millisecond)
	s.notify()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		r.FailNow("waiter not woken")
	}
}

func TestSignalWakesTask(t *testing.T) {
	r := require.New(t)

	s := newSignal()
	woke := false
	NewSchedule().Run(func(_ context.Context, task *Task) {
		task.Gogo(func(_ context.Context, task *Task) {
			task.Await(s.C())
			woke = true
		})
		task.Gogo(func(_ context.Context, task *Task) {
			task.Sleep(time.Millisecond)
			s.notify()
		})
	}).Resume(context.Background())

	r.True(woke)
}
