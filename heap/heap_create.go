package heap

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"
)

// CreateOptions contains settings for building a new Heap. Capacity is required;
// everything else has a usable zero value.
type CreateOptions struct {
	// Capacity is the size of the arena in bytes. It must be large enough to host
	// at least one block header and may not exceed MaxCapacity.
	Capacity int

	// Policy controls request rounding and block splitting. When nil, DefaultPolicy
	// is used: 4-byte granularity, 4-byte minimum useful payload, matching the
	// allocator's tagged variant.
	Policy SizePolicy

	// Callbacks is an optional set of callbacks executed on allocator events
	Callbacks *CallbackOptions

	// Logger, when provided, receives debug-level records for rejected frees. The
	// public no-op contract of Free is unaffected.
	Logger *slog.Logger
}

// New builds a Heap over a freshly-allocated zeroed arena. The returned heap is a
// single free block spanning the entire arena minus one header.
func New(options CreateOptions) (*Heap, error) {
	if options.Capacity <= HeaderSize {
		return nil, cerrors.Errorf("capacity %d cannot host a block header and payload", options.Capacity)
	}
	if options.Capacity > MaxCapacity {
		return nil, cerrors.Errorf("capacity %d exceeds the maximum of %d", options.Capacity, MaxCapacity)
	}

	policy := options.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}

	h := &Heap{
		arena:  make([]byte, options.Capacity),
		policy: policy,
		logger: options.Logger,
		live:   swiss.NewMap[uint32, uint32](42),
	}
	h.callbacks = heapCallbacks{
		Callbacks: options.Callbacks,
		Heap:      h,
	}

	h.writeHeader(0, blockHeader{
		magic: BlockMagic,
		size:  options.Capacity - HeaderSize,
		free:  true,
		prev:  noBlock,
		next:  noBlock,
	})
	h.freeBytes = options.Capacity - HeaderSize
	h.freeRegions = 1

	return h, nil
}
