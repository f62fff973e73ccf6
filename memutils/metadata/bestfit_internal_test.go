//go:build !debug_mem_utils

package metadata

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// untrackedTail builds a block of 1000 with a@0 (100) and b@100 (100), then drops the trailing
// free region from the free indexes so the tail is no longer covered by any free region.
func untrackedTail(t *testing.T) *BestFitBlockMetadata {
	md := NewBestFitBlockMetadata()
	md.Init(1000)

	for _, owner := range []string{"a", "b"} {
		success, req, err := md.CreateAllocationRequest(100)
		require.NoError(t, err)
		require.True(t, success)
		require.NoError(t, md.Alloc(req, owner))
	}

	md.removeFreeRegion(Region{Start: 200, Size: 800})
	require.Equal(t, 0, md.FreeRegionsCount())
	require.Error(t, md.Validate())

	return md
}

func TestTailAppendIntoUntrackedTail(t *testing.T) {
	md := untrackedTail(t)

	success, req, err := md.CreateAllocationRequest(300)
	require.NoError(t, err)
	require.True(t, success)
	require.Equal(t, AllocationRequest{
		Type:   AllocationRequestTailAppend,
		Offset: 200,
		Size:   300,
	}, req)

	require.NoError(t, md.Alloc(req, "c"))

	region, err := md.AllocationRegion("c")
	require.NoError(t, err)
	require.Equal(t, Region{Start: 200, Size: 300, Owner: "c"}, region)

	// Nothing fits after c either: 500 + 600 > 1000
	success, _, err = md.CreateAllocationRequest(600)
	require.NoError(t, err)
	require.False(t, success)
}

func TestTailAppendCarvesOverlappingFreeRegions(t *testing.T) {
	md := untrackedTail(t)

	// Too small to satisfy the request, but inside the range the tail append will claim
	md.insertFreeRegion(Region{Start: 250, Size: 100})
	md.insertFreeRegion(Region{Start: 450, Size: 100})

	success, req, err := md.CreateAllocationRequest(300)
	require.NoError(t, err)
	require.True(t, success)
	require.Equal(t, AllocationRequestTailAppend, req.Type)
	require.Equal(t, 200, req.Offset)

	require.NoError(t, md.Alloc(req, "c"))

	require.Equal(t, []Region{{Start: 500, Size: 50}}, md.free.Slice())
	require.Equal(t, []Region{{Start: 500, Size: 50}}, md.freeBySize.Slice())
	require.Equal(t, 50, md.SumFreeSize())

	for _, free := range md.free.Slice() {
		for _, occupied := range md.occupied.Slice() {
			require.False(t, free.Overlaps(occupied))
		}
	}
}

func TestTailAppendKeepsTrailingPartOfFreeRegion(t *testing.T) {
	md := untrackedTail(t)

	req := AllocationRequest{Type: AllocationRequestTailAppend, Offset: 200, Size: 100}

	md.insertFreeRegion(Region{Start: 200, Size: 50})
	require.NoError(t, md.Alloc(req, "c"))
	require.Equal(t, 0, md.FreeRegionsCount())
	require.Equal(t, 0, md.SumFreeSize())

	md.insertFreeRegion(Region{Start: 300, Size: 150})
	req = AllocationRequest{Type: AllocationRequestTailAppend, Offset: 300, Size: 100}
	require.NoError(t, md.Alloc(req, "d"))
	require.Equal(t, []Region{{Start: 400, Size: 50}}, md.free.Slice())
}

func TestTailAppendStaleRequest(t *testing.T) {
	md := untrackedTail(t)

	req := AllocationRequest{Type: AllocationRequestTailAppend, Offset: 150, Size: 100}
	require.Error(t, md.Alloc(req, "c"))
	require.Equal(t, 2, md.AllocationCount())

	md.Clear()
	req = AllocationRequest{Type: AllocationRequestTailAppend, Offset: 0, Size: 100}
	require.Error(t, md.Alloc(req, "c"))
	require.True(t, md.IsEmpty())
}

func TestTailAppendRejectsOverrun(t *testing.T) {
	md := untrackedTail(t)

	// 800 bytes remain after b
	for _, size := range []int{801, 1000, math.MaxInt - 100, math.MaxInt} {
		success, _, err := md.CreateAllocationRequest(size)
		require.NoError(t, err)
		require.False(t, success, "size %d", size)
	}

	success, req, err := md.CreateAllocationRequest(800)
	require.NoError(t, err)
	require.True(t, success)
	require.Equal(t, AllocationRequestTailAppend, req.Type)

	req.Size = math.MaxInt - 100
	require.Error(t, md.Alloc(req, "c"))
	require.Equal(t, 2, md.AllocationCount())
}

func TestTailAppendNeedsOccupiedRegion(t *testing.T) {
	md := NewBestFitBlockMetadata()
	md.Init(1000)

	md.removeFreeRegion(Region{Start: 0, Size: 1000})

	success, _, err := md.CreateAllocationRequest(100)
	require.NoError(t, err)
	require.False(t, success)
}

func TestInsertFreeRegionProducesMaximalPartition(t *testing.T) {
	md := NewBestFitBlockMetadata()
	md.Init(1000)
	md.removeFreeRegion(Region{Start: 0, Size: 1000})

	// Inserted out of order, every piece touching the next
	md.insertFreeRegion(Region{Start: 300, Size: 100})
	md.insertFreeRegion(Region{Start: 0, Size: 100})
	md.insertFreeRegion(Region{Start: 200, Size: 100})
	md.insertFreeRegion(Region{Start: 100, Size: 100})
	md.insertFreeRegion(Region{Start: 600, Size: 400})

	require.Equal(t, []Region{
		{Start: 0, Size: 400},
		{Start: 600, Size: 400},
	}, md.free.Slice())
	require.Equal(t, []Region{
		{Start: 0, Size: 400},
		{Start: 600, Size: 400},
	}, md.freeBySize.Slice())

	md.insertFreeRegion(Region{Start: 400, Size: 200})
	require.Equal(t, []Region{{Start: 0, Size: 1000}}, md.free.Slice())
	require.NoError(t, md.Validate())
}

func TestValidateRejectsOwnedFreeRegion(t *testing.T) {
	md := NewBestFitBlockMetadata()
	md.Init(1000)
	require.NoError(t, md.Validate())

	md.removeFreeRegion(Region{Start: 0, Size: 1000})
	md.insertFreeRegion(Region{Start: 0, Size: 1000, Owner: "a"})

	err := md.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "indexed as free=true")
}
