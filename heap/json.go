package heap

import "github.com/launchdarkly/go-jsonstream/v3/jwriter"

// BlockJsonData writes summary occupancy fields for this heap into an open JSON
// object.
func (h *Heap) BlockJsonData(json jwriter.ObjectState) {
	json.Name("TotalBytes").Int(h.Size())
	json.Name("UnusedBytes").Int(h.SumFreeSize())
	json.Name("Allocations").Int(h.AllocationCount())
	json.Name("UnusedRanges").Int(h.FreeRegionsCount())
}

// BuildStatsString renders the detailed heap map as a JSON string.
func (h *Heap) BuildStatsString() string {
	writer := jwriter.NewWriter()
	h.PrintDetailedMap(&writer)
	return string(writer.Bytes())
}

// PrintDetailedMap writes a full map of the heap into the provided writer as a
// single JSON object: the summary fields followed by one entry per region, in
// address order.
func (h *Heap) PrintDetailedMap(writer *jwriter.Writer) {
	obj := writer.Object()
	defer obj.End()

	h.BlockJsonData(obj)

	arrayState := obj.Name("Regions").Array()
	defer arrayState.End()

	_ = h.VisitAllRegions(func(offset, size int, free bool) error {
		regionObj := arrayState.Object()
		defer regionObj.End()

		regionObj.Name("Offset").Int(offset)
		regionObj.Name("Size").Int(size)
		if free {
			regionObj.Name("Type").String("FREE")
		} else {
			regionObj.Name("Type").String("ALLOCATION")
		}

		return nil
	})
}
