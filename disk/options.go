package disk

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// CreateFlags indicate specific disk behaviors to activate or deactivate
type CreateFlags int32

const (
	// CreateExternallySynchronized ensures that the disk will not be synchronized internally. The
	// consumer must guarantee it is used from only one goroutine at a time or is synchronized by some
	// other mechanism.
	CreateExternallySynchronized CreateFlags = 1 << iota
)

var createFlagsMapping = []struct {
	flag CreateFlags
	name string
}{
	{CreateExternallySynchronized, "CreateExternallySynchronized"},
}

func (f CreateFlags) String() string {
	var names []string
	for _, mapping := range createFlagsMapping {
		if f&mapping.flag != 0 {
			names = append(names, mapping.name)
		}
	}

	return strings.Join(names, "|")
}

const (
	// DefaultCapacity is the capacity in bytes used when none is provided via CreateOptions. It is
	// the size of a 360KB floppy.
	DefaultCapacity int = 368640
	// DefaultMinAllocationSize is the smallest file size accepted when none is provided via CreateOptions
	DefaultMinAllocationSize int = 18
	// DefaultMaxAllocationSize is the largest file size accepted when none is provided via CreateOptions
	DefaultMaxAllocationSize int = 32768
)

// CreateOptions contains optional settings when creating a disk. Zero values are replaced
// with the package defaults. A defaulted MaxAllocationSize never exceeds Capacity.
type CreateOptions struct {
	// Flags indicates specific disk behaviors to activate or deactivate
	Flags CreateFlags
	// Capacity is the total number of bytes managed by the disk
	Capacity int
	// MinAllocationSize is the smallest size, in bytes, that may be allocated
	MinAllocationSize int
	// MaxAllocationSize is the largest size, in bytes, that may be allocated
	MaxAllocationSize int
}

func (o CreateOptions) withDefaults() CreateOptions {
	if o.Capacity == 0 {
		o.Capacity = DefaultCapacity
	}

	if o.MinAllocationSize == 0 {
		o.MinAllocationSize = DefaultMinAllocationSize
	}

	if o.MaxAllocationSize == 0 {
		o.MaxAllocationSize = DefaultMaxAllocationSize
		if o.Capacity < o.MaxAllocationSize {
			o.MaxAllocationSize = o.Capacity
		}
	}

	return o
}

func (o CreateOptions) validate() error {
	if o.Capacity < 1 {
		return errors.Newf("disk.CreateOptions.Capacity must be positive, but was %d", o.Capacity)
	}

	if o.MinAllocationSize < 1 {
		return errors.Newf("disk.CreateOptions.MinAllocationSize must be positive, but was %d", o.MinAllocationSize)
	}

	if o.MinAllocationSize > o.MaxAllocationSize {
		return errors.Newf("disk.CreateOptions.MinAllocationSize (%d) is larger than MaxAllocationSize (%d)", o.MinAllocationSize, o.MaxAllocationSize)
	}

	if o.MaxAllocationSize > o.Capacity {
		return errors.Newf("disk.CreateOptions.MaxAllocationSize (%d) is larger than Capacity (%d)", o.MaxAllocationSize, o.Capacity)
	}

	return nil
}
