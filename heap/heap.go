// Package heap implements a fixed-capacity allocator over a single contiguous byte
// arena, in the style of an embedded-target heap: block metadata lives in-band
// immediately before each payload, allocation is first-fit over an address-ordered
// doubly linked chain of headers, and releases coalesce with their immediate
// neighbors. A Heap performs no internal synchronization; concurrent callers must
// serialize access externally.
package heap

import (
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/fixedheap/fixedheap/memutils"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"
)

// Heap manages allocations within one fixed-size arena. Use New to build one.
type Heap struct {
	arena     []byte
	policy    SizePolicy
	callbacks heapCallbacks
	logger    *slog.Logger

	// live maps payload offsets of outstanding allocations to their block payload
	// sizes. It backstops the in-band validation: a pointer whose header happens to
	// look plausible is still rejected unless it matches a live entry.
	live *swiss.Map[uint32, uint32]

	allocCount  int
	freeBytes   int
	freeRegions int
}

var _ memutils.Validatable = (*Heap)(nil)

// Size returns the arena capacity in bytes.
func (h *Heap) Size() int { return len(h.arena) }

// AllocationCount returns the number of live allocations.
func (h *Heap) AllocationCount() int { return h.allocCount }

// SumFreeSize returns the number of payload bytes currently available across all
// free blocks. A single allocation of this size will usually not succeed; see
// MayHaveFreeBlock and LargestFreeRegion.
func (h *Heap) SumFreeSize() int { return h.freeBytes }

// FreeRegionsCount returns the number of distinct free blocks in the chain.
func (h *Heap) FreeRegionsCount() int { return h.freeRegions }

// IsEmpty returns true if the heap has no live allocations.
func (h *Heap) IsEmpty() bool { return h.allocCount == 0 }

// MayHaveFreeBlock is a fast heuristic for whether an allocation of the given size
// could possibly succeed. False positives are possible under fragmentation; false
// negatives are not.
func (h *Heap) MayHaveFreeBlock(size int) bool {
	if size <= 0 {
		return false
	}

	rounded := h.policy.RoundUpAllocRequest(size)
	return rounded+memutils.DebugMargin <= h.freeBytes
}

// LargestFreeRegion walks the chain and returns the payload size of the largest
// free block, or 0 when no block is free.
func (h *Heap) LargestFreeRegion() int {
	largest := 0
	for offset := 0; offset != noBlock; {
		hdr := h.headerAt(offset)
		if hdr.free && hdr.size > largest {
			largest = hdr.size
		}
		offset = hdr.next
	}

	return largest
}

// Alloc reserves size usable bytes and returns them as a subslice of the arena, or
// nil when size is not positive or no free block is large enough. The slice may be
// longer than requested depending on the rounding and split policy in force.
func (h *Heap) Alloc(size int) []byte {
	payload, _ := h.TryAlloc(size)
	return payload
}

// TryAlloc is Alloc with the failure cause exposed: ErrInvalidSize for non-positive
// sizes, ErrOutOfMemory when no free block can satisfy the request.
func (h *Heap) TryAlloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, cerrors.Wrapf(ErrInvalidSize, "requested %d bytes", size)
	}

	memutils.DebugValidate(h)

	rounded := h.policy.RoundUpAllocRequest(size)
	if rounded < size {
		rounded = size
	}
	blockSize := rounded + memutils.DebugMargin

	if blockSize > h.freeBytes {
		return nil, cerrors.Wrapf(ErrOutOfMemory, "requested %d bytes with %d free", size, h.freeBytes)
	}

	for offset := 0; offset != noBlock; {
		hdr := h.headerAt(offset)
		if !hdr.free || hdr.size < blockSize {
			offset = hdr.next
			continue
		}

		surplus := hdr.size - blockSize
		if surplus >= HeaderSize && h.policy.ShouldSplit(surplus) {
			remainderOffset := offset + HeaderSize + blockSize
			h.writeHeader(remainderOffset, blockHeader{
				magic: BlockMagic,
				size:  surplus - HeaderSize,
				free:  true,
				prev:  offset,
				next:  hdr.next,
			})

			if hdr.next != noBlock {
				next := h.headerAt(hdr.next)
				next.prev = remainderOffset
				h.writeHeader(hdr.next, next)
			}

			hdr.size = blockSize
			hdr.next = remainderOffset
			h.freeBytes -= blockSize + HeaderSize
		} else {
			h.freeBytes -= hdr.size
			h.freeRegions--
		}

		hdr.free = false
		h.writeHeader(offset, hdr)

		payloadOffset := offset + HeaderSize
		h.live.Put(uint32(payloadOffset), uint32(hdr.size))
		h.allocCount++

		usable := hdr.size - memutils.DebugMargin
		memutils.WriteMagicValue(h.arena, payloadOffset+usable)

		memutils.DebugValidate(h)
		h.callbacks.Allocate(payloadOffset, hdr.size)

		return h.arena[payloadOffset : payloadOffset+usable : payloadOffset+usable], nil
	}

	return nil, cerrors.Wrapf(ErrOutOfMemory, "requested %d bytes with %d free", size, h.freeBytes)
}

// Free releases a payload previously returned by Alloc. Nil slices, foreign
// pointers, out-of-range pointers and double frees are silently ignored; the heap
// never mutates state on an invalid release and never panics over one.
func (h *Heap) Free(payload []byte) {
	_ = h.TryFree(payload)
}

// TryFree is Free with the rejection cause exposed. The sentinel errors in this
// package describe the possible causes; a nil return means the block was released.
func (h *Heap) TryFree(payload []byte) error {
	err := h.release(payload)
	if err != nil {
		if h.logger != nil {
			h.logger.Debug("rejected free", slog.String("reason", err.Error()))
		}
		h.callbacks.InvalidFree(err)
	}

	return err
}

func (h *Heap) release(payload []byte) error {
	headerOffset, err := h.recoverHeaderOffset(payload)
	if err != nil {
		return err
	}

	hdr, err := h.validateBlock(headerOffset)
	if err != nil {
		return err
	}

	if hdr.free {
		return cerrors.Wrapf(ErrDoubleFree, "block at offset %d", headerOffset)
	}

	payloadOffset := headerOffset + HeaderSize
	recorded, ok := h.live.Get(uint32(payloadOffset))
	if !ok || int(recorded) != hdr.size {
		return cerrors.Wrapf(ErrUnknownAllocation, "payload at offset %d", payloadOffset)
	}

	hdr.free = true
	h.writeHeader(headerOffset, hdr)
	h.live.Delete(uint32(payloadOffset))
	h.allocCount--
	h.freeBytes += hdr.size
	h.freeRegions++

	h.callbacks.Free(payloadOffset, hdr.size)

	// Absorb into a free predecessor first, then pull in a free successor. Each
	// merge overwrites one header, so a single release shrinks the chain by at
	// most two blocks.
	current := headerOffset
	if hdr.prev != noBlock {
		prev := h.headerAt(hdr.prev)
		if prev.free {
			prev.size += HeaderSize + hdr.size
			prev.next = hdr.next
			if hdr.next != noBlock {
				next := h.headerAt(hdr.next)
				next.prev = hdr.prev
				h.writeHeader(hdr.next, next)
			}

			h.retireHeader(current)
			h.writeHeader(hdr.prev, prev)
			current = hdr.prev
			hdr = prev
			h.freeBytes += HeaderSize
			h.freeRegions--
		}
	}

	if hdr.next != noBlock {
		next := h.headerAt(hdr.next)
		if next.free {
			absorbed := hdr.next
			hdr.size += HeaderSize + next.size
			hdr.next = next.next
			if next.next != noBlock {
				after := h.headerAt(next.next)
				after.prev = current
				h.writeHeader(next.next, after)
			}

			h.retireHeader(absorbed)
			h.writeHeader(current, hdr)
			h.freeBytes += HeaderSize
			h.freeRegions--
		}
	}

	memutils.DebugValidate(h)
	return nil
}

// recoverHeaderOffset maps a payload slice back to the arena offset of the header
// that would precede it. This is the only pointer arithmetic in the allocator; the
// result is trusted no further than validateBlock allows.
func (h *Heap) recoverHeaderOffset(payload []byte) (int, error) {
	if len(payload) == 0 {
		return 0, ErrNilPointer
	}

	base := uintptr(unsafe.Pointer(unsafe.SliceData(h.arena)))
	p := uintptr(unsafe.Pointer(unsafe.SliceData(payload)))
	if p < base || p >= base+uintptr(len(h.arena)) {
		return 0, ErrOutOfRange
	}

	payloadOffset := int(p - base)
	if payloadOffset < HeaderSize {
		return 0, cerrors.Wrapf(ErrOutOfRange, "payload offset %d leaves no room for a header", payloadOffset)
	}

	return payloadOffset - HeaderSize, nil
}

// validateBlock runs the full header validation over a recovered offset: arena
// containment of the complete header, the sentinel, and size plausibility. Any
// failing check rejects the block whole.
func (h *Heap) validateBlock(headerOffset int) (blockHeader, error) {
	if headerOffset < 0 || headerOffset+HeaderSize > len(h.arena) {
		return blockHeader{}, cerrors.Wrapf(ErrOutOfRange, "header at offset %d", headerOffset)
	}

	hdr := h.headerAt(headerOffset)
	if hdr.magic != BlockMagic {
		return blockHeader{}, cerrors.Wrapf(ErrBadMagic, "header at offset %d holds 0x%08X", headerOffset, hdr.magic)
	}

	if hdr.size > len(h.arena) || headerOffset+HeaderSize+hdr.size > len(h.arena) {
		return blockHeader{}, cerrors.Wrapf(ErrBadSize, "header at offset %d claims %d payload bytes", headerOffset, hdr.size)
	}

	return hdr, nil
}

// OffsetOf reports the arena offset of a payload previously returned by Alloc,
// running the same validation as Free. Offsets from the arena base are stable
// when an allocation sequence is replayed, which makes them useful in tests and
// diagnostics.
func (h *Heap) OffsetOf(payload []byte) (int, error) {
	headerOffset, err := h.recoverHeaderOffset(payload)
	if err != nil {
		return 0, err
	}

	_, err = h.validateBlock(headerOffset)
	if err != nil {
		return 0, err
	}

	return headerOffset + HeaderSize, nil
}

// Clear instantly discards all outstanding allocations and returns the heap to its
// initial state: one free block spanning the whole arena. Payload slices obtained
// before a Clear must not be used afterward.
func (h *Heap) Clear() {
	h.writeHeader(0, blockHeader{
		magic: BlockMagic,
		size:  len(h.arena) - HeaderSize,
		free:  true,
		prev:  noBlock,
		next:  noBlock,
	})

	h.live = swiss.NewMap[uint32, uint32](42)
	h.allocCount = 0
	h.freeBytes = len(h.arena) - HeaderSize
	h.freeRegions = 1
}

// VisitAllRegions calls handleRegion once for every block in the chain, in address
// order, passing the payload offset and payload size. Walking is linear in the
// number of blocks; prefer the counters for routine queries.
func (h *Heap) VisitAllRegions(handleRegion func(offset, size int, free bool) error) error {
	for offset := 0; offset != noBlock; {
		hdr := h.headerAt(offset)
		err := handleRegion(offset+HeaderSize, hdr.size, hdr.free)
		if err != nil {
			return err
		}

		offset = hdr.next
	}

	return nil
}

// AddStatistics sums this heap's occupancy into the provided statistics object.
func (h *Heap) AddStatistics(stats *memutils.Statistics) {
	stats.HeapCount++
	stats.AllocationCount += h.allocCount
	stats.HeapBytes += len(h.arena)
	stats.AllocationBytes += h.allocatedBytes()
}

// AddDetailedStatistics sums this heap's occupancy and region size distribution
// into the provided statistics object. Requires a full chain walk.
func (h *Heap) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.HeapCount++
	stats.HeapBytes += len(h.arena)

	for offset := 0; offset != noBlock; {
		hdr := h.headerAt(offset)
		if hdr.free {
			stats.AddFreeRegion(hdr.size)
		} else {
			stats.AddAllocation(hdr.size)
		}

		offset = hdr.next
	}
}

func (h *Heap) allocatedBytes() int {
	blockCount := h.allocCount + h.freeRegions
	return len(h.arena) - h.freeBytes - HeaderSize*blockCount
}

// CheckCorruption verifies the debug margins trailing every live allocation. The
// margins are only written when the module is built with the debug_heap_utils tag;
// without it this method returns nil without inspecting anything.
func (h *Heap) CheckCorruption() error {
	if memutils.DebugMargin == 0 {
		return nil
	}

	for offset := 0; offset != noBlock; {
		hdr := h.headerAt(offset)
		if !hdr.free {
			marginOffset := offset + HeaderSize + hdr.size - memutils.DebugMargin
			if !memutils.ValidateMagicValue(h.arena, marginOffset) {
				return errors.Errorf("memory corruption detected after the allocation at offset %d", offset+HeaderSize)
			}
		}

		offset = hdr.next
	}

	return nil
}

// Validate performs internal consistency checks over the whole chain and the live
// registry. When the allocator is functioning correctly it cannot return an error,
// but it can help diagnose arena corruption by code outside the allocator.
func (h *Heap) Validate() error {
	var allocCount, freeRegions, freeBytes, coveredBytes int
	prevOffset := noBlock
	prevFree := false

	for offset := 0; offset != noBlock; {
		if offset+HeaderSize > len(h.arena) {
			return errors.Errorf("block header at offset %d overruns the arena", offset)
		}

		hdr := h.headerAt(offset)
		if hdr.magic != BlockMagic {
			return errors.Errorf("block at offset %d does not carry the sentinel", offset)
		}

		if hdr.prev != prevOffset {
			return errors.Errorf("block at offset %d lists %d as its predecessor, expected %d", offset, hdr.prev, prevOffset)
		}

		end := offset + HeaderSize + hdr.size
		if end > len(h.arena) {
			return errors.Errorf("block at offset %d ends at %d, past the arena end %d", offset, end, len(h.arena))
		}

		if hdr.next == noBlock {
			if end != len(h.arena) {
				return errors.Errorf("the last block ends at %d, leaving a gap before the arena end %d", end, len(h.arena))
			}
		} else if hdr.next != end {
			return errors.Errorf("block at offset %d ends at %d but its successor starts at %d", offset, end, hdr.next)
		}

		if hdr.free && prevFree {
			return errors.Errorf("adjacent free blocks at offsets %d and %d", prevOffset, offset)
		}

		coveredBytes += HeaderSize + hdr.size

		if hdr.free {
			freeRegions++
			freeBytes += hdr.size
		} else {
			allocCount++

			recorded, ok := h.live.Get(uint32(offset + HeaderSize))
			if !ok {
				return errors.Errorf("allocated block at offset %d is missing from the live registry", offset)
			}
			if int(recorded) != hdr.size {
				return errors.Errorf("live registry records %d bytes for the block at offset %d, header says %d", recorded, offset, hdr.size)
			}
		}

		prevFree = hdr.free
		prevOffset = offset
		offset = hdr.next
	}

	if coveredBytes != len(h.arena) {
		return errors.Errorf("blocks cover %d of %d arena bytes", coveredBytes, len(h.arena))
	}

	if allocCount != h.allocCount {
		return errors.Errorf("the allocation count of the heap is %d, but the taken blocks only added up to %d", h.allocCount, allocCount)
	}

	if h.live.Count() != h.allocCount {
		return errors.Errorf("the live registry holds %d entries for %d allocations", h.live.Count(), h.allocCount)
	}

	if freeBytes != h.freeBytes {
		return errors.Errorf("the free size of the heap is %d, but the free blocks only added up to %d", h.freeBytes, freeBytes)
	}

	if freeRegions != h.freeRegions {
		return errors.Errorf("the free region count of the heap is %d, but there were only %d free blocks", h.freeRegions, freeRegions)
	}

	return nil
}
