package relock

// noCopy may be embedded into structs which must not be copied after
// first use. go vet's copylocks check recognizes it through the
// sync.Locker methods below.
type noCopy struct{}

// Lock is a no-op used by go vet.
func (*noCopy) Lock() {}

// Unlock is a no-op used by go vet.
func (*noCopy) Unlock() {}
