package metadata

// Region is a contiguous range of bytes within a block. Occupied regions carry the
// identifier of their owner, free regions have an empty Owner.
type Region struct {
	Start int
	Size  int
	Owner string
}

// End returns the offset of the first byte after the region
func (r Region) End() int {
	return r.Start + r.Size
}

// IsFree returns true if the region has no owner
func (r Region) IsFree() bool {
	return r.Owner == ""
}

// Adjacent returns true if next begins exactly where r ends
func (r Region) Adjacent(next Region) bool {
	return r.End() == next.Start
}

// Overlaps returns true if r and other share at least one byte
func (r Region) Overlaps(other Region) bool {
	return r.Start < other.End() && other.Start < r.End()
}
