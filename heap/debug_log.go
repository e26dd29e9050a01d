package heap

import "golang.org/x/exp/slog"

// DebugLogAllAllocations calls logFunc once for every live allocation in the heap,
// in address order. Intended for leak diagnostics at teardown.
func (h *Heap) DebugLogAllAllocations(logger *slog.Logger, logFunc func(log *slog.Logger, offset int, size int)) {
	for offset := 0; offset != noBlock; {
		hdr := h.headerAt(offset)
		if !hdr.free {
			logFunc(logger, offset+HeaderSize, hdr.size)
		}

		offset = hdr.next
	}
}
