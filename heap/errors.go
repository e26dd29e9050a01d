package heap

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/pkg/errors"
)

// Allocation failures, observable through TryAlloc. The public Alloc method
// collapses all of them into a nil result.
var (
	// ErrInvalidSize is returned when TryAlloc is called with a zero or negative size
	ErrInvalidSize error = errors.New("allocation size must be positive")
	// ErrOutOfMemory is returned when no free block is large enough to satisfy a request
	ErrOutOfMemory error = errors.New("no free block can satisfy the request")
)

// Release failures, observable through TryFree. The public Free method treats all
// of them as a silent no-op; heap state is never mutated when one is returned.
var (
	// ErrNilPointer is returned when TryFree receives a nil or empty payload
	ErrNilPointer error = errors.New("payload is nil")
	// ErrOutOfRange is returned when the payload, or the header that would precede
	// it, does not lie inside the arena
	ErrOutOfRange error = errors.New("payload does not point into the arena")
	// ErrBadMagic is returned when the recovered header does not carry the block
	// sentinel, indicating corruption or a pointer foreign to this allocator
	ErrBadMagic error = errors.New("block header sentinel mismatch")
	// ErrBadSize is returned when the recovered header describes a payload that
	// could not fit in the arena
	ErrBadSize error = errors.New("block header size is implausible")
	// ErrDoubleFree is returned when the recovered header is already free
	ErrDoubleFree error = errors.New("block is already free")
	// ErrUnknownAllocation is returned when the payload passes the header checks but
	// does not correspond to any live allocation, such as an interior pointer
	ErrUnknownAllocation error = errors.New("payload does not match a live allocation")
)

func errInvalidMinUseful(value int) error {
	return cerrors.Errorf("minimum useful payload must not be negative, got %d", value)
}
