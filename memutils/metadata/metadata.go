package metadata

//go:generate mockgen -source=metadata.go -destination=mocks/mock_metadata.go -package=mock_metadata

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/diskmm/memutils"
)

const (
	regionTypeFree = "FREE"
	regionTypeFile = "FILE"
)

// BlockMetadata represents a single fixed-size span of managed bytes. It manages
// named allocations within the span, allowing allocations to be requested and freed, as well as
// enumerated and queried.
type BlockMetadata interface {
	// Init must be called before the BlockMetadata is used. It gives the implementation an opportunity
	// to ensure that metadata structures are prepared for allocations, as well as allows the consumer
	// to inform the implementation of the size in bytes of the block it will be managing,
	// via the size parameter. The whole block starts out as a single free region.
	Init(size int)
	// Size retrieves the size in bytes that the block was initialized with
	Size() int

	// Validate performs internal consistency checks on the metadata. These checks may be expensive, depending
	// on the implementation. When the implementation is functioning correctly, it should not be possible
	// for this method to return an error, but this may assist in diagnosing issues with the implementation.
	Validate() error
	// AllocationCount returns the number of live allocations in the block
	AllocationCount() int
	// FreeRegionsCount returns the number of unique regions of free space in the block. Adjacent free
	// regions are always merged, so they are counted once.
	FreeRegionsCount() int
	// SumFreeSize returns the number of free bytes in the block.
	SumFreeSize() int
	// IsEmpty will return true if this block has no live allocations
	IsEmpty() bool

	// VisitAllRegions will call the provided callback once for each allocation and free region in
	// the block, in ascending offset order. Iteration stops at the first error returned by the callback
	// and that error is returned.
	VisitAllRegions(handleRegion func(region Region, free bool) error) error
	// AllocationRegion returns the occupied region held by owner. It returns an error wrapping
	// memutils.NotFoundError if owner holds no region in this block.
	AllocationRegion(owner string) (Region, error)

	// AddDetailedStatistics sums this block's allocation statistics into the statistics currently present
	// in the provided memutils.DetailedStatistics object.
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	// AddStatistics sums this block's allocation statistics into the statistics currently present in the
	// provided memutils.Statistics object.
	AddStatistics(stats *memutils.Statistics)

	// Clear instantly frees all allocations, leaving a single free region that spans the block
	Clear()
	// BlockJsonData populates a json object with information about this block and every region in it
	BlockJsonData(json jwriter.ObjectState)

	// CreateAllocationRequest retrieves an AllocationRequest object indicating where the implementation
	// would place an allocation of allocSize bytes. That object can be passed to Alloc to commit the
	// allocation. The boolean return value is false if there is no room for the allocation. This
	// method never changes the metadata.
	CreateAllocationRequest(allocSize int) (bool, AllocationRequest, error)
	// Alloc commits an AllocationRequest object, creating the allocation within the block on behalf of
	// owner. The implementation must return an error, without changing anything, if the request is no
	// longer valid- i.e. the requested free region no longer exists or has changed size- or if owner is
	// empty or already holds an allocation in this block.
	Alloc(request AllocationRequest, owner string) error
	// Free frees the allocation held by owner, causing it to become a free region once again and merging
	// it with any free regions on either side.
	//
	// The implementation must return an error wrapping memutils.NotFoundError if owner holds no
	// allocation within this block.
	Free(owner string) error
}

// BlockMetadataBase is a simple struct that provides a few shared utilities for BlockMetadata
// implementations in the memutils module.
type BlockMetadataBase struct {
	size int
}

// Init prepares this structure for allocations and sizes the block in bytes based on the parameter size.
func (m *BlockMetadataBase) Init(size int) {
	m.size = size
}

// Size returns the size of the block in bytes
func (m *BlockMetadataBase) Size() int { return m.size }

func (m *BlockMetadataBase) printDetailedMapHeader(json *jwriter.ObjectState, unusedBytes, allocationCount, unusedRangeCount int) {
	json.Name("TotalBytes").Int(m.Size())
	json.Name("UnusedBytes").Int(unusedBytes)
	json.Name("Allocations").Int(allocationCount)
	json.Name("UnusedRanges").Int(unusedRangeCount)
}

func (m *BlockMetadataBase) printDetailedMapUnusedRange(json *jwriter.ArrayState, offset, size int) {
	obj := json.Object()
	defer obj.End()

	obj.Name("Offset").Int(offset)
	obj.Name("Type").String(regionTypeFree)
	obj.Name("Size").Int(size)
}

func (m *BlockMetadataBase) printDetailedMapAllocation(json *jwriter.ArrayState, offset, size int, owner string) {
	obj := json.Object()
	defer obj.End()

	obj.Name("Offset").Int(offset)
	obj.Name("Type").String(regionTypeFile)
	obj.Name("Size").Int(size)
	obj.Name("Owner").String(owner)
}
