package disk

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/diskmm/disk/internal/utils"
	"github.com/vkngwrapper/diskmm/memutils"
	"github.com/vkngwrapper/diskmm/memutils/metadata"
	"golang.org/x/exp/slog"
)

// Disk is a fixed-capacity simulated disk. Files are placed by name into contiguous regions using
// a best-fit strategy, and free space is merged back together as files are deleted.
type Disk struct {
	logger   *slog.Logger
	mutex    utils.OptionalRWMutex
	metadata metadata.BlockMetadata

	capacity          int
	minAllocationSize int
	maxAllocationSize int
}

// New creates a new, empty Disk. If logger is nil, nothing is logged.
func New(logger *slog.Logger, options CreateOptions) (*Disk, error) {
	return newDisk(logger, metadata.NewBestFitBlockMetadata(), options)
}

func newDisk(logger *slog.Logger, md metadata.BlockMetadata, options CreateOptions) (*Disk, error) {
	options = options.withDefaults()
	if err := options.validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard))
	}

	d := &Disk{
		logger:   logger,
		metadata: md,
		mutex: utils.OptionalRWMutex{
			UseMutex: options.Flags&CreateExternallySynchronized == 0,
		},

		capacity:          options.Capacity,
		minAllocationSize: options.MinAllocationSize,
		maxAllocationSize: options.MaxAllocationSize,
	}
	d.metadata.Init(options.Capacity)

	d.logger.Debug("Disk::New",
		slog.Int("Capacity", options.Capacity),
		slog.Int("MinAllocationSize", options.MinAllocationSize),
		slog.Int("MaxAllocationSize", options.MaxAllocationSize),
		slog.String("Flags", options.Flags.String()),
	)

	return d, nil
}

// Capacity returns the total number of bytes managed by the disk
func (d *Disk) Capacity() int {
	return d.capacity
}

// AllocationSizeRange returns the smallest and largest sizes, in bytes, that Allocate accepts
func (d *Disk) AllocationSizeRange() (minimum, maximum int) {
	return d.minAllocationSize, d.maxAllocationSize
}

// Allocate places a new file of size bytes on the disk on behalf of owner and returns its
// start offset.
//
// It returns an error wrapping memutils.InvalidOwnerError if owner is empty,
// memutils.OwnerExistsError if owner already has a file on the disk, memutils.SizeOutOfRangeError
// if size is outside of the disk's allocation size bounds, or memutils.NoSpaceError if there is no
// room for the file. The disk is unchanged when an error is returned.
func (d *Disk) Allocate(owner string, size int) (int, error) {
	d.logger.Debug("Disk::Allocate", slog.String("Owner", owner), slog.Int("Size", size))

	if owner == "" {
		return -1, errors.WithStack(memutils.InvalidOwnerError)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	_, err := d.metadata.AllocationRegion(owner)
	if err == nil {
		return -1, errors.Wrapf(memutils.OwnerExistsError, "owner %q", owner)
	} else if !errors.Is(err, memutils.NotFoundError) {
		return -1, err
	}

	err = memutils.CheckRange(size, d.minAllocationSize, d.maxAllocationSize, "file size")
	if err != nil {
		return -1, err
	}

	success, request, err := d.metadata.CreateAllocationRequest(size)
	if err != nil {
		return -1, err
	}

	if !success {
		d.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Disk::Allocate FAILED", slog.String("Owner", owner), slog.Int("Size", size))
		return -1, errors.Wrapf(memutils.NoSpaceError, "%d bytes for owner %q", size, owner)
	}

	err = d.metadata.Alloc(request, owner)
	if err != nil {
		return -1, err
	}

	d.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Allocated",
		slog.String("Owner", owner),
		slog.Int("Offset", request.Offset),
		slog.Int("Size", size),
		slog.String("Type", request.Type.String()),
	)

	return request.Offset, nil
}

// Release frees the file held by owner, merging its region with any free neighbors. It returns
// an error wrapping memutils.NotFoundError if owner has no file on the disk.
func (d *Disk) Release(owner string) error {
	d.logger.Debug("Disk::Release", slog.String("Owner", owner))

	d.mutex.Lock()
	defer d.mutex.Unlock()

	region, err := d.metadata.AllocationRegion(owner)
	if err != nil {
		return err
	}

	err = d.metadata.Free(owner)
	if err != nil {
		return err
	}

	d.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Released",
		slog.String("Owner", owner),
		slog.Int("Offset", region.Start),
		slog.Int("Size", region.Size),
	)

	return nil
}

// Status returns a snapshot of every occupied and free region on the disk
func (d *Disk) Status() Status {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	status := Status{
		Capacity: d.capacity,
		Occupied: make([]metadata.Region, 0, d.metadata.AllocationCount()),
		Free:     make([]metadata.Region, 0, d.metadata.FreeRegionsCount()),
	}

	_ = d.metadata.VisitAllRegions(func(region metadata.Region, free bool) error {
		if free {
			status.Free = append(status.Free, region)
		} else {
			status.Occupied = append(status.Occupied, region)
		}
		return nil
	})

	return status
}

// CalculateStatistics sums the disk's allocation statistics into stats
func (d *Disk) CalculateStatistics(stats *memutils.DetailedStatistics) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	d.metadata.AddDetailedStatistics(stats)
}

// PrintDetailedMap writes a json object describing the disk and every region on it
func (d *Disk) PrintDetailedMap(writer *jwriter.Writer) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	objState := writer.Object()
	defer objState.End()

	d.metadata.BlockJsonData(objState)
}

// Validate runs the metadata's internal consistency checks
func (d *Disk) Validate() error {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	err := d.metadata.Validate()
	if err != nil {
		d.logger.Error("Disk::Validate FAILED", slog.Any("Error", err))
	}

	return err
}
