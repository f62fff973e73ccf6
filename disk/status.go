package disk

import "github.com/vkngwrapper/diskmm/memutils/metadata"

// Status is a snapshot of every region on the disk. Both slices are ordered by start offset
// and belong to the caller.
type Status struct {
	Capacity int
	Occupied []metadata.Region
	Free     []metadata.Region
}

// OccupiedBytes returns the total size of all occupied regions
func (s Status) OccupiedBytes() int {
	total := 0
	for _, region := range s.Occupied {
		total += region.Size
	}
	return total
}

// FreeBytes returns the total size of all free regions
func (s Status) FreeBytes() int {
	total := 0
	for _, region := range s.Free {
		total += region.Size
	}
	return total
}
