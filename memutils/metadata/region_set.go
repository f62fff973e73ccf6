package metadata

import (
	"fmt"

	"github.com/google/btree"
)

const regionSetDegree = 16

func lessByStart(left, right Region) bool {
	return left.Start < right.Start
}

// Free regions of equal size are ordered by start so that the first candidate found
// is also the lowest offset
func lessBySize(left, right Region) bool {
	if left.Size != right.Size {
		return left.Size < right.Size
	}

	return left.Start < right.Start
}

// regionSet is an ordered collection of non-overlapping regions backed by a b-tree
type regionSet struct {
	tree *btree.BTreeG[Region]
}

func newRegionSet(less btree.LessFunc[Region]) *regionSet {
	return &regionSet{
		tree: btree.NewG[Region](regionSetDegree, less),
	}
}

func (s *regionSet) Len() int {
	return s.tree.Len()
}

func (s *regionSet) Insert(region Region) {
	if replaced, exists := s.tree.ReplaceOrInsert(region); exists {
		panic(fmt.Sprintf("region at offset %d was inserted over existing region at offset %d", region.Start, replaced.Start))
	}
}

func (s *regionSet) Remove(region Region) {
	if _, removed := s.tree.Delete(region); !removed {
		panic(fmt.Sprintf("region at offset %d with size %d was not present in the set", region.Start, region.Size))
	}
}

func (s *regionSet) Get(key Region) (Region, bool) {
	return s.tree.Get(key)
}

func (s *regionSet) Max() (Region, bool) {
	return s.tree.Max()
}

func (s *regionSet) Clear() {
	s.tree.Clear(false)
}

// Ascend calls iterator for every region in order until iterator returns false
func (s *regionSet) Ascend(iterator func(region Region) bool) {
	s.tree.Ascend(iterator)
}

// AscendFrom calls iterator for every region that does not sort before pivot, in order, until
// iterator returns false
func (s *regionSet) AscendFrom(pivot Region, iterator func(region Region) bool) {
	s.tree.AscendGreaterOrEqual(pivot, iterator)
}

// First returns the first region that does not sort before pivot
func (s *regionSet) First(pivot Region) (Region, bool) {
	var found Region
	var ok bool

	s.tree.AscendGreaterOrEqual(pivot, func(region Region) bool {
		found = region
		ok = true
		return false
	})

	return found, ok
}

// Last returns the last region that does not sort after pivot
func (s *regionSet) Last(pivot Region) (Region, bool) {
	var found Region
	var ok bool

	s.tree.DescendLessOrEqual(pivot, func(region Region) bool {
		found = region
		ok = true
		return false
	})

	return found, ok
}

// Slice copies the contents of the set, in order, into a new slice
func (s *regionSet) Slice() []Region {
	regions := make([]Region, 0, s.tree.Len())
	s.tree.Ascend(func(region Region) bool {
		regions = append(regions, region)
		return true
	})

	return regions
}
