package heap_test

import (
	"bytes"
	"testing"

	"github.com/fixedheap/fixedheap/heap"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestFreeNil(t *testing.T) {
	h, err := heap.New(heap.CreateOptions{Capacity: 2048})
	require.NoError(t, err)

	h.Free(nil)
	require.ErrorIs(t, h.TryFree(nil), heap.ErrNilPointer)
	require.ErrorIs(t, h.TryFree([]byte{}), heap.ErrNilPointer)
	require.NoError(t, h.Validate())
	require.Equal(t, 2048-heap.HeaderSize, h.SumFreeSize())
}

func TestFreeForeignSlice(t *testing.T) {
	h, err := heap.New(heap.CreateOptions{Capacity: 2048})
	require.NoError(t, err)

	foreign := make([]byte, 64)
	h.Free(foreign)
	require.ErrorIs(t, h.TryFree(foreign), heap.ErrOutOfRange)
	require.NoError(t, h.Validate())
}

func TestFreePointerFromAnotherHeap(t *testing.T) {
	h1, err := heap.New(heap.CreateOptions{Capacity: 2048})
	require.NoError(t, err)
	h2, err := heap.New(heap.CreateOptions{Capacity: 2048})
	require.NoError(t, err)

	p := h2.Alloc(100)
	require.NotNil(t, p)

	require.ErrorIs(t, h1.TryFree(p), heap.ErrOutOfRange)
	require.NoError(t, h1.Validate())
	require.NoError(t, h2.Validate())
	require.Equal(t, 1, h2.AllocationCount())
}

func TestFreeInteriorPointer(t *testing.T) {
	h, err := heap.New(heap.CreateOptions{Capacity: 2048})
	require.NoError(t, err)

	p := h.Alloc(64)
	require.NotNil(t, p)

	require.Error(t, h.TryFree(p[8:]))
	require.NoError(t, h.Validate())
	require.Equal(t, 1, h.AllocationCount())

	// The real payload is still releasable.
	require.NoError(t, h.TryFree(p))
	require.True(t, h.IsEmpty())
}

func TestDoubleFree(t *testing.T) {
	h, err := heap.New(heap.CreateOptions{Capacity: 2048})
	require.NoError(t, err)

	p := h.Alloc(100)
	require.NotNil(t, p)

	require.NoError(t, h.TryFree(p))
	require.ErrorIs(t, h.TryFree(p), heap.ErrDoubleFree)
	require.NoError(t, h.Validate())
	require.Equal(t, 1, h.FreeRegionsCount())
}

func TestDoubleFreeOfMergedBlock(t *testing.T) {
	h, err := heap.New(heap.CreateOptions{Capacity: 2048})
	require.NoError(t, err)

	a := h.Alloc(64)
	b := h.Alloc(64)
	c := h.Alloc(64)
	require.NotNil(t, c)

	h.Free(a)
	// b's header is destroyed when b merges backward into the hole at a.
	h.Free(b)
	require.NoError(t, h.Validate())

	require.ErrorIs(t, h.TryFree(b), heap.ErrBadMagic)
	require.NoError(t, h.Validate())
	require.Equal(t, 1, h.AllocationCount())
}

func TestInvalidFreeCallback(t *testing.T) {
	var reported []error
	options := heap.CreateOptions{
		Capacity: 2048,
		Callbacks: &heap.CallbackOptions{
			InvalidFree: func(h *heap.Heap, err error, userData any) {
				reported = append(reported, err)
			},
		},
	}

	h, err := heap.New(options)
	require.NoError(t, err)

	h.Free(nil)
	require.Len(t, reported, 1)
	require.ErrorIs(t, reported[0], heap.ErrNilPointer)

	p := h.Alloc(32)
	h.Free(p)
	require.Len(t, reported, 1)

	h.Free(p)
	require.Len(t, reported, 2)
	require.ErrorIs(t, reported[1], heap.ErrDoubleFree)
}

func TestAllocAndFreeCallbacks(t *testing.T) {
	type event struct {
		kind   string
		offset int
		size   int
	}
	var events []event

	options := heap.CreateOptions{
		Capacity: 2048,
		Callbacks: &heap.CallbackOptions{
			Allocate: func(h *heap.Heap, offset, size int, userData any) {
				events = append(events, event{"alloc", offset, size})
			},
			Free: func(h *heap.Heap, offset, size int, userData any) {
				events = append(events, event{"free", offset, size})
			},
		},
	}

	h, err := heap.New(options)
	require.NoError(t, err)

	p := h.Alloc(100)
	require.NotNil(t, p)
	h.Free(p)

	require.Equal(t, []event{
		{"alloc", heap.HeaderSize, 100},
		{"free", heap.HeaderSize, 100},
	}, events)
}

func TestRejectedFreeIsLogged(t *testing.T) {
	var buf bytes.Buffer
	h, err := heap.New(heap.CreateOptions{
		Capacity: 2048,
		Logger:   slog.New(slog.HandlerOptions{Level: slog.LevelDebug}.NewTextHandler(&buf)),
	})
	require.NoError(t, err)

	h.Free(nil)
	require.Contains(t, buf.String(), "rejected free")
}
