package metadata

import (
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/diskmm/memutils"
)

// BestFitBlockMetadata is a BlockMetadata implementation that places each allocation at the front of
// the smallest free region able to hold it, splitting off the remainder, and merges free regions
// with their free neighbors as soon as they become adjacent.
//
// Free regions are indexed twice: by start offset, for merging with neighbors, and by
// (size, start), so that the best fit is a single ordered lookup. Occupied regions are
// indexed by start offset and by owner.
type BestFitBlockMetadata struct {
	BlockMetadataBase

	sumFreeSize int
	free        *regionSet
	freeBySize  *regionSet
	occupied    *regionSet
	owners      *swiss.Map[string, Region]
}

var _ BlockMetadata = &BestFitBlockMetadata{}

// NewBestFitBlockMetadata creates a new BestFitBlockMetadata. Init must be called before it is used.
func NewBestFitBlockMetadata() *BestFitBlockMetadata {
	return &BestFitBlockMetadata{
		free:       newRegionSet(lessByStart),
		freeBySize: newRegionSet(lessBySize),
		occupied:   newRegionSet(lessByStart),
		owners:     swiss.NewMap[string, Region](42),
	}
}

// Init prepares this structure for allocations and sizes the block in bytes based on the parameter size.
func (m *BestFitBlockMetadata) Init(size int) {
	m.BlockMetadataBase.Init(size)
	m.Clear()
}

// Clear instantly frees all allocations, leaving a single free region that spans the block
func (m *BestFitBlockMetadata) Clear() {
	m.free.Clear()
	m.freeBySize.Clear()
	m.occupied.Clear()
	m.owners = swiss.NewMap[string, Region](42)
	m.sumFreeSize = 0

	if m.size > 0 {
		m.insertFreeRegion(Region{Start: 0, Size: m.size})
	}
}

func (m *BestFitBlockMetadata) AllocationCount() int {
	return m.occupied.Len()
}

func (m *BestFitBlockMetadata) FreeRegionsCount() int {
	return m.free.Len()
}

func (m *BestFitBlockMetadata) SumFreeSize() int {
	return m.sumFreeSize
}

func (m *BestFitBlockMetadata) IsEmpty() bool {
	return m.occupied.Len() == 0
}

// Validate walks every region in offset order and verifies that occupied and free regions tile the
// block exactly, that no two free regions touch, that each owner appears once, and that every index
// and cached counter agrees with the regions themselves.
func (m *BestFitBlockMetadata) Validate() error {
	if m.sumFreeSize > m.size {
		return errors.New("invalid metadata free size")
	}

	if m.free.Len() != m.freeBySize.Len() {
		return errors.Errorf("the free region index has %d entries, but the free size index has %d", m.free.Len(), m.freeBySize.Len())
	}

	if m.occupied.Len() != m.owners.Count() {
		return errors.Errorf("the occupied region index has %d entries, but the owner index has %d", m.occupied.Len(), m.owners.Count())
	}

	nextOffset := 0
	calculatedFreeSize := 0
	previousFree := false

	err := m.VisitAllRegions(func(region Region, free bool) error {
		if region.Size < 1 {
			return errors.Errorf("region at offset %d has invalid size %d", region.Start, region.Size)
		}

		if region.Start < nextOffset {
			return errors.Errorf("region at offset %d overlaps the previous region, which ends at offset %d", region.Start, nextOffset)
		}

		if region.Start > nextOffset {
			return errors.Errorf("region at offset %d leaves a gap after the previous region, which ends at offset %d", region.Start, nextOffset)
		}

		if free != region.IsFree() {
			return errors.Errorf("region at offset %d is indexed as free=%t but has owner %q", region.Start, free, region.Owner)
		}

		if free {
			if previousFree {
				return errors.Errorf("free region at offset %d is adjacent to the previous free region and should have been merged", region.Start)
			}

			if _, indexed := m.freeBySize.Get(region); !indexed {
				return errors.Errorf("free region at offset %d is missing from the free size index", region.Start)
			}

			calculatedFreeSize += region.Size
		} else {
			indexed, ok := m.owners.Get(region.Owner)
			if !ok {
				return errors.Errorf("occupied region at offset %d is missing from the owner index", region.Start)
			}

			if indexed != region {
				return errors.Errorf("owner %q is indexed at offset %d but occupies offset %d", region.Owner, indexed.Start, region.Start)
			}
		}

		previousFree = free
		nextOffset = region.End()
		return nil
	})
	if err != nil {
		return err
	}

	if nextOffset != m.size {
		return errors.Errorf("the full size of the metadata is %d, but the regions only added up to %d", m.size, nextOffset)
	}

	if calculatedFreeSize != m.sumFreeSize {
		return errors.Errorf("the free size of the metadata is %d, but the free regions only added up to %d", m.sumFreeSize, calculatedFreeSize)
	}

	return nil
}

func (m *BestFitBlockMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.BlockCount++
	stats.BlockBytes += m.size

	m.free.Ascend(func(region Region) bool {
		stats.AddUnusedRange(region.Size)
		return true
	})

	m.occupied.Ascend(func(region Region) bool {
		stats.AddAllocation(region.Size)
		return true
	})
}

func (m *BestFitBlockMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.BlockCount++
	stats.AllocationCount += m.occupied.Len()
	stats.BlockBytes += m.size
	stats.AllocationBytes += m.size - m.sumFreeSize
}

func (m *BestFitBlockMetadata) BlockJsonData(json jwriter.ObjectState) {
	var stats memutils.DetailedStatistics
	stats.Clear()
	m.AddDetailedStatistics(&stats)

	m.printDetailedMapHeader(&json, m.sumFreeSize, stats.AllocationCount, stats.UnusedRangeCount)

	arrayState := json.Name("Regions").Array()
	defer arrayState.End()

	_ = m.VisitAllRegions(func(region Region, free bool) error {
		if free {
			m.printDetailedMapUnusedRange(&arrayState, region.Start, region.Size)
		} else {
			m.printDetailedMapAllocation(&arrayState, region.Start, region.Size, region.Owner)
		}
		return nil
	})
}

// VisitAllRegions merges the occupied and free indexes into a single pass in ascending offset order
func (m *BestFitBlockMetadata) VisitAllRegions(handleRegion func(region Region, free bool) error) error {
	occupied := m.occupied.Slice()
	free := m.free.Slice()

	for len(occupied) > 0 || len(free) > 0 {
		var err error
		if len(free) == 0 || (len(occupied) > 0 && occupied[0].Start < free[0].Start) {
			err = handleRegion(occupied[0], false)
			occupied = occupied[1:]
		} else {
			err = handleRegion(free[0], true)
			free = free[1:]
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (m *BestFitBlockMetadata) AllocationRegion(owner string) (Region, error) {
	region, ok := m.owners.Get(owner)
	if !ok {
		return Region{}, errors.Wrapf(memutils.NotFoundError, "owner %q", owner)
	}

	return region, nil
}

func (m *BestFitBlockMetadata) CreateAllocationRequest(allocSize int) (bool, AllocationRequest, error) {
	var allocRequest AllocationRequest

	if allocSize < 1 {
		return false, allocRequest, errors.Errorf("invalid allocSize: %d", allocSize)
	}

	if allocSize > m.size {
		return false, allocRequest, nil
	}

	// Smallest free region that fits, lowest offset among equals
	candidate, found := m.freeBySize.First(Region{Size: allocSize})
	if found {
		allocRequest.Type = AllocationRequestBestFit
		allocRequest.Offset = candidate.Start
		allocRequest.Size = allocSize
		allocRequest.RegionSize = candidate.Size
		return true, allocRequest, nil
	}

	// Nothing fits, try directly after the last occupied region
	last, hasOccupied := m.occupied.Max()
	if !hasOccupied || allocSize > m.size-last.End() {
		return false, allocRequest, nil
	}

	allocRequest.Type = AllocationRequestTailAppend
	allocRequest.Offset = last.End()
	allocRequest.Size = allocSize
	return true, allocRequest, nil
}

func (m *BestFitBlockMetadata) Alloc(req AllocationRequest, owner string) error {
	if owner == "" {
		return errors.WithStack(memutils.InvalidOwnerError)
	}

	if m.owners.Has(owner) {
		return errors.Wrapf(memutils.OwnerExistsError, "owner %q", owner)
	}

	if req.Size < 1 || req.Offset < 0 || req.Offset > m.size || req.Size > m.size-req.Offset {
		return errors.Errorf("allocation request at offset %d with size %d does not fit in a block of size %d", req.Offset, req.Size, m.size)
	}

	switch req.Type {
	case AllocationRequestBestFit:
		candidate, ok := m.free.Get(Region{Start: req.Offset})
		if !ok || candidate.Size != req.RegionSize || candidate.Size < req.Size {
			return errors.Errorf("allocation request referred to a free region at offset %d that no longer exists", req.Offset)
		}

		m.removeFreeRegion(candidate)
		if candidate.Size > req.Size {
			m.insertFreeRegion(Region{Start: candidate.Start + req.Size, Size: candidate.Size - req.Size})
		}
	case AllocationRequestTailAppend:
		last, ok := m.occupied.Max()
		if !ok || last.End() != req.Offset {
			return errors.Errorf("allocation request expected the last occupied region to end at offset %d", req.Offset)
		}

		m.carveFreeRange(Region{Start: req.Offset, Size: req.Size})
	default:
		return errors.Errorf("allocation request was received with an unknown type %d", req.Type)
	}

	region := Region{Start: req.Offset, Size: req.Size, Owner: owner}
	m.occupied.Insert(region)
	m.owners.Put(owner, region)

	memutils.DebugValidate(m)
	return nil
}

func (m *BestFitBlockMetadata) Free(owner string) error {
	region, ok := m.owners.Get(owner)
	if !ok {
		return errors.Wrapf(memutils.NotFoundError, "owner %q", owner)
	}

	m.occupied.Remove(region)
	m.owners.Delete(owner)
	m.insertFreeRegion(Region{Start: region.Start, Size: region.Size})

	memutils.DebugValidate(m)
	return nil
}

// insertFreeRegion adds a free region, merging it with the free region that ends where it starts
// and the free region that starts where it ends
func (m *BestFitBlockMetadata) insertFreeRegion(region Region) {
	prev, ok := m.free.Last(Region{Start: region.Start - 1})
	if ok && prev.Adjacent(region) {
		m.removeFreeRegion(prev)
		region.Start = prev.Start
		region.Size += prev.Size
	}

	next, ok := m.free.Get(Region{Start: region.End()})
	if ok {
		m.removeFreeRegion(next)
		region.Size += next.Size
	}

	m.free.Insert(region)
	m.freeBySize.Insert(region)
	m.sumFreeSize += region.Size
}

func (m *BestFitBlockMetadata) removeFreeRegion(region Region) {
	m.free.Remove(region)
	m.freeBySize.Remove(region)
	m.sumFreeSize -= region.Size
}

// carveFreeRange removes target from whatever free regions overlap it, keeping the parts of
// those regions that fall outside of target
func (m *BestFitBlockMetadata) carveFreeRange(target Region) {
	var overlapping []Region

	if prev, ok := m.free.Last(Region{Start: target.Start}); ok && prev.Overlaps(target) {
		overlapping = append(overlapping, prev)
	}

	m.free.AscendFrom(Region{Start: target.Start + 1}, func(region Region) bool {
		if region.Start >= target.End() {
			return false
		}
		overlapping = append(overlapping, region)
		return true
	})

	for _, region := range overlapping {
		m.removeFreeRegion(region)
	}

	for _, region := range overlapping {
		if region.Start < target.Start {
			m.insertFreeRegion(Region{Start: region.Start, Size: target.Start - region.Start})
		}

		if region.End() > target.End() {
			m.insertFreeRegion(Region{Start: target.End(), Size: region.End() - target.End()})
		}
	}
}
