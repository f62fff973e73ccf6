package metadata

// AllocationRequestType is an enum that indicates the type of allocation that is being made.
// It is returned in AllocationRequest from CreateAllocationRequest
type AllocationRequestType uint32

const (
	// AllocationRequestBestFit indicates that the allocation will be carved from the front of the
	// smallest free region that can hold it
	AllocationRequestBestFit AllocationRequestType = iota + 1
	// AllocationRequestTailAppend indicates that no free region could hold the allocation and it will
	// instead be placed directly after the last occupied region in the block
	AllocationRequestTailAppend
)

var allocationRequestMapping = map[AllocationRequestType]string{
	AllocationRequestBestFit:    "BestFit",
	AllocationRequestTailAppend: "TailAppend",
}

func (t AllocationRequestType) String() string {
	return allocationRequestMapping[t]
}

// AllocationRequest is a type returned from BlockMetadata.CreateAllocationRequest which indicates where and how
// the metadata intends to place a new allocation. Nothing is changed until the request is committed
// with BlockMetadata.Alloc.
type AllocationRequest struct {
	// Type identifies which placement path produced this request
	Type AllocationRequestType
	// Offset is the start offset the new allocation will receive
	Offset int
	// Size is the size in bytes of the new allocation
	Size int
	// RegionSize is the size of the free region the allocation will be carved from. It is used by
	// Alloc to reject requests whose free region has changed since the request was created. It is
	// 0 for AllocationRequestTailAppend.
	RegionSize int
}
