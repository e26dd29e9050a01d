package heap

// A size policy that performs no rounding and splits whenever a remainder header fits
type FakeSizePolicy struct{}

func (p FakeSizePolicy) RoundUpAllocRequest(allocSize int) int { return allocSize }
func (p FakeSizePolicy) ShouldSplit(surplus int) bool          { return surplus >= HeaderSize }
