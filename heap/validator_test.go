package heap

import (
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestFreeRejectsSmashedSentinel(t *testing.T) {
	h, err := New(CreateOptions{Capacity: 1024})
	require.NoError(t, err)

	p := h.Alloc(100)
	require.NotNil(t, p)

	offset, err := h.OffsetOf(p)
	require.NoError(t, err)

	binary.LittleEndian.PutUint32(h.arena[offset-HeaderSize+fieldMagic:], 0x01020304)

	err = h.TryFree(p)
	require.ErrorIs(t, err, ErrBadMagic)
	require.Equal(t, 1, h.allocCount)
}

func TestFreeRejectsImplausibleSize(t *testing.T) {
	h, err := New(CreateOptions{Capacity: 1024})
	require.NoError(t, err)

	p := h.Alloc(100)
	require.NotNil(t, p)

	offset, err := h.OffsetOf(p)
	require.NoError(t, err)

	// Claim a payload that runs past the arena end.
	binary.LittleEndian.PutUint32(h.arena[offset-HeaderSize+fieldSize:], 4096)

	err = h.TryFree(p)
	require.ErrorIs(t, err, ErrBadSize)
	require.Equal(t, 1, h.allocCount)
}

func TestFreeRejectsResizedLiveEntry(t *testing.T) {
	h, err := New(CreateOptions{Capacity: 1024})
	require.NoError(t, err)

	p := h.Alloc(100)
	require.NotNil(t, p)

	offset, err := h.OffsetOf(p)
	require.NoError(t, err)

	// A plausible but wrong size no longer matches the live registry entry.
	binary.LittleEndian.PutUint32(h.arena[offset-HeaderSize+fieldSize:], 104)

	err = h.TryFree(p)
	require.ErrorIs(t, err, ErrUnknownAllocation)
}

func TestValidateDetectsBrokenBacklink(t *testing.T) {
	h, err := New(CreateOptions{Capacity: 1024})
	require.NoError(t, err)

	p := h.Alloc(100)
	require.NotNil(t, p)
	require.NoError(t, h.Validate())

	offset, err := h.OffsetOf(p)
	require.NoError(t, err)

	remainderOffset := offset - HeaderSize + HeaderSize + 100
	binary.LittleEndian.PutUint32(h.arena[remainderOffset+fieldPrev:], 8)

	require.ErrorContains(t, h.Validate(), "predecessor")
}

func TestValidateDetectsRegistryDrift(t *testing.T) {
	h, err := New(CreateOptions{Capacity: 1024})
	require.NoError(t, err)

	p := h.Alloc(100)
	require.NotNil(t, p)

	offset, err := h.OffsetOf(p)
	require.NoError(t, err)

	h.live.Delete(uint32(offset))
	require.ErrorContains(t, h.Validate(), "live registry")
}

func TestValidateAfterAllocFreeChurn(t *testing.T) {
	h, err := New(CreateOptions{Capacity: 4096})
	require.NoError(t, err)

	var live [][]byte
	for i := 1; i <= 12; i++ {
		p := h.Alloc(i * 16)
		require.NotNil(t, p)
		live = append(live, p)
		require.NoError(t, h.Validate())
	}

	// Free every other allocation to fragment the chain, then the rest.
	for i := 0; i < len(live); i += 2 {
		h.Free(live[i])
		require.NoError(t, h.Validate())
	}
	for i := 1; i < len(live); i += 2 {
		h.Free(live[i])
		require.NoError(t, h.Validate())
	}

	require.True(t, h.IsEmpty())
	require.Equal(t, 1, h.freeRegions)
	require.Equal(t, 4096-HeaderSize, h.freeBytes)
}

func TestHeaderAtPanicsOutsideArena(t *testing.T) {
	h, err := New(CreateOptions{Capacity: 256})
	require.NoError(t, err)

	require.Panics(t, func() { h.headerAt(-1) })
	require.Panics(t, func() { h.headerAt(256 - HeaderSize + 1) })
}

func TestCheckCorruptionWithoutMargins(t *testing.T) {
	h, err := New(CreateOptions{Capacity: 256})
	require.NoError(t, err)

	p := h.Alloc(64)
	require.NotNil(t, p)
	require.NoError(t, h.CheckCorruption())
}

func TestValidateErrorsCarryStackTraces(t *testing.T) {
	h, err := New(CreateOptions{Capacity: 1024})
	require.NoError(t, err)

	forgeFreeRun(t, h, []int{100, 884})

	err = h.Validate()
	require.Error(t, err)

	_, ok := err.(interface{ StackTrace() errors.StackTrace })
	require.True(t, ok)
}
