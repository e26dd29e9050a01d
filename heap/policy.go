package heap

import (
	"github.com/fixedheap/fixedheap/memutils"
)

// SizePolicy decides how requested allocation sizes map onto block sizes. The Heap
// consults it twice per allocation: once to round the requested size before the
// first-fit search, and once to decide whether a candidate block's surplus is worth
// splitting off as a new free block.
type SizePolicy interface {
	// RoundUpAllocRequest converts the caller's requested payload size into the
	// size that will actually be reserved. The returned value must not be smaller
	// than allocSize.
	RoundUpAllocRequest(allocSize int) int
	// ShouldSplit reports whether a candidate block whose payload exceeds the
	// (rounded) request by surplus bytes should be divided into an allocated
	// block and a free remainder. When it returns false the entire candidate is
	// handed to the caller, accepting internal waste over creating a free block
	// too small to ever satisfy a request.
	ShouldSplit(surplus int) bool
}

// GranularityPolicy is the standard SizePolicy: requests are rounded up to a fixed
// power-of-two granularity, and blocks are split only when the surplus can host a
// header plus at least MinUsefulPayload bytes.
type GranularityPolicy struct {
	Granularity      int
	MinUsefulPayload int
}

var _ SizePolicy = GranularityPolicy{}

// NewGranularityPolicy validates the provided parameters and builds a
// GranularityPolicy from them. Granularity must be a power of two and
// MinUsefulPayload must not be negative.
func NewGranularityPolicy(granularity, minUsefulPayload int) (GranularityPolicy, error) {
	err := memutils.CheckPow2(granularity, "granularity")
	if err != nil {
		return GranularityPolicy{}, err
	}

	if minUsefulPayload < 0 {
		return GranularityPolicy{}, errInvalidMinUseful(minUsefulPayload)
	}

	return GranularityPolicy{
		Granularity:      granularity,
		MinUsefulPayload: minUsefulPayload,
	}, nil
}

// DefaultPolicy returns the policy used when CreateOptions does not name one:
// 4-byte granularity with a 4-byte minimum useful payload.
func DefaultPolicy() SizePolicy {
	return GranularityPolicy{
		Granularity:      4,
		MinUsefulPayload: 4,
	}
}

func (p GranularityPolicy) RoundUpAllocRequest(allocSize int) int {
	return memutils.AlignUp(allocSize, uint(p.Granularity))
}

func (p GranularityPolicy) ShouldSplit(surplus int) bool {
	return surplus > HeaderSize+p.MinUsefulPayload
}
