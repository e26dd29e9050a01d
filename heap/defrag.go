package heap

import "github.com/fixedheap/fixedheap/memutils"

// Defragment walks the chain once and merges every maximal run of adjacent free
// blocks into a single free block, guaranteeing that no two adjacent blocks are
// free when it returns. Release-time coalescing already maintains that property,
// so on a healthy heap this is a no-op chain walk; it exists to re-establish the
// property when outside code has rewritten headers in the arena. It moves no
// payload bytes and therefore never invalidates a live allocation.
//
// The return value is the number of block headers merged away.
func (h *Heap) Defragment() int {
	merged := 0

	offset := 0
	hdr := h.headerAt(offset)
	for hdr.next != noBlock {
		next := h.headerAt(hdr.next)
		if hdr.free && next.free {
			h.retireHeader(hdr.next)
			hdr.size += HeaderSize + next.size
			hdr.next = next.next
			if next.next != noBlock {
				after := h.headerAt(next.next)
				after.prev = offset
				h.writeHeader(next.next, after)
			}

			h.writeHeader(offset, hdr)
			h.freeBytes += HeaderSize
			h.freeRegions--
			merged++
		} else {
			offset = hdr.next
			hdr = next
		}
	}

	memutils.DebugValidate(h)
	return merged
}
