package memutils

import cerrors "github.com/cockroachdb/errors"

var (
	// SizeOutOfRangeError is returned when a requested allocation size falls outside of the configured
	// minimum and maximum allocation sizes. It does not depend on how much space is left.
	SizeOutOfRangeError error = cerrors.New("allocation size is out of range")
	// NoSpaceError is returned when no free region is large enough for a requested allocation
	// and the allocation could not be appended after the last occupied region either
	NoSpaceError error = cerrors.New("no suitable space for allocation")
	// NotFoundError is returned when an owner is named that has no occupied region
	NotFoundError error = cerrors.New("allocation not found")
	// InvalidOwnerError is returned when an allocation is requested without an owner
	InvalidOwnerError error = cerrors.New("allocation owner must not be empty")
	// OwnerExistsError is returned when an allocation is requested for an owner that already
	// holds an occupied region
	OwnerExistsError error = cerrors.New("allocation owner already exists")
)
