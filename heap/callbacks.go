package heap

// AllocateCallback is executed after an allocation succeeds. offset is the payload's
// position from the arena base and size is the full payload size of the block, which
// may be larger than the caller requested.
type AllocateCallback func(heap *Heap, offset int, size int, userData any)

// FreeCallback is executed after a valid release completes, before any coalescing
// bookkeeping becomes visible to the caller.
type FreeCallback func(heap *Heap, offset int, size int, userData any)

// InvalidFreeCallback is executed when a release is rejected. The production contract
// is still a silent no-op; this hook exists so tests and debug builds can observe the
// rejection reason.
type InvalidFreeCallback func(heap *Heap, err error, userData any)

// CallbackOptions is an optional set of callbacks executed on allocator events. It
// can be helpful when the consumer wants allocator-level visibility without changing
// the silent public contract.
type CallbackOptions struct {
	Allocate    AllocateCallback
	Free        FreeCallback
	InvalidFree InvalidFreeCallback
	UserData    any
}

type heapCallbacks struct {
	Callbacks *CallbackOptions
	Heap      *Heap
}

func (c *heapCallbacks) Allocate(offset, size int) {
	if c.Callbacks != nil && c.Callbacks.Allocate != nil {
		c.Callbacks.Allocate(c.Heap, offset, size, c.Callbacks.UserData)
	}
}

func (c *heapCallbacks) Free(offset, size int) {
	if c.Callbacks != nil && c.Callbacks.Free != nil {
		c.Callbacks.Free(c.Heap, offset, size, c.Callbacks.UserData)
	}
}

func (c *heapCallbacks) InvalidFree(err error) {
	if c.Callbacks != nil && c.Callbacks.InvalidFree != nil {
		c.Callbacks.InvalidFree(c.Heap, err, c.Callbacks.UserData)
	}
}
