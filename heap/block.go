package heap

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the number of bytes of in-band metadata that precede every
	// payload region in the arena
	HeaderSize = 20

	// BlockMagic is the sentinel written into every live block header. A header
	// without it is either corrupted memory or a pointer that was never produced
	// by this allocator.
	BlockMagic uint32 = 0xDEADBEEF

	// MaxCapacity is the largest arena a Heap can manage. Link fields in block
	// headers are stored as 32-bit offsets, with the top value reserved as the
	// nil sentinel.
	MaxCapacity = 1 << 31
)

// noBlock marks the absent predecessor of the first block and the absent
// successor of the last one.
const noBlock = -1

// nilLink is the wire encoding of noBlock.
const nilLink = ^uint32(0)

const (
	fieldMagic = 0
	fieldSize  = 4
	fieldFlags = 8
	fieldPrev  = 12
	fieldNext  = 16
)

const flagFree uint32 = 1

// blockHeader is the decoded form of the metadata record embedded at the start of
// each block region. size counts payload bytes only; prev and next are arena offsets
// of the address-adjacent headers, or noBlock at the chain ends.
type blockHeader struct {
	magic uint32
	size  int
	free  bool
	prev  int
	next  int
}

func decodeLink(raw uint32) int {
	if raw == nilLink {
		return noBlock
	}
	return int(raw)
}

func encodeLink(offset int) uint32 {
	if offset == noBlock {
		return nilLink
	}
	return uint32(offset)
}

// headerAt decodes the header embedded at the given arena offset. The offset must
// come from the allocator's own chain walking; out-of-range offsets indicate
// internal corruption and panic.
func (h *Heap) headerAt(offset int) blockHeader {
	if offset < 0 || offset+HeaderSize > len(h.arena) {
		panic(fmt.Sprintf("block header offset %d is outside the arena", offset))
	}

	data := h.arena[offset : offset+HeaderSize]
	return blockHeader{
		magic: binary.LittleEndian.Uint32(data[fieldMagic:]),
		size:  int(binary.LittleEndian.Uint32(data[fieldSize:])),
		free:  binary.LittleEndian.Uint32(data[fieldFlags:])&flagFree != 0,
		prev:  decodeLink(binary.LittleEndian.Uint32(data[fieldPrev:])),
		next:  decodeLink(binary.LittleEndian.Uint32(data[fieldNext:])),
	}
}

func (h *Heap) writeHeader(offset int, hdr blockHeader) {
	if offset < 0 || offset+HeaderSize > len(h.arena) {
		panic(fmt.Sprintf("block header offset %d is outside the arena", offset))
	}

	var flags uint32
	if hdr.free {
		flags |= flagFree
	}

	data := h.arena[offset : offset+HeaderSize]
	binary.LittleEndian.PutUint32(data[fieldMagic:], hdr.magic)
	binary.LittleEndian.PutUint32(data[fieldSize:], uint32(hdr.size))
	binary.LittleEndian.PutUint32(data[fieldFlags:], flags)
	binary.LittleEndian.PutUint32(data[fieldPrev:], encodeLink(hdr.prev))
	binary.LittleEndian.PutUint32(data[fieldNext:], encodeLink(hdr.next))
}

// retireHeader destroys the sentinel of a header that has been merged away, so that
// stale payload pointers recovered from this region fail validation.
func (h *Heap) retireHeader(offset int) {
	binary.LittleEndian.PutUint32(h.arena[offset+fieldMagic:], 0)
}
