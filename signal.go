package relock

// signal is a single-slot wakeup. Setting it is idempotent and never
// blocks; a waiter receiving from it clears the slot. A wakeup carries
// no ownership: whoever receives it must re-check the condition it
// was waiting for.
type signal chan struct{}

func newSignal() signal {
	return make(signal, 1)
}

// notify sets the slot if it is not already set.
func (s signal) notify() {
	select {
	case s <- struct{}{}:
	default:
	}
}

// C returns the channel to wait on.
func (s signal) C() <-chan struct{} {
	return s
}
