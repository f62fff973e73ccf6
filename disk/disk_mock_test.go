package disk

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/diskmm/memutils"
	"github.com/vkngwrapper/diskmm/memutils/metadata"
	mock_metadata "github.com/vkngwrapper/diskmm/memutils/metadata/mocks"
	"go.uber.org/mock/gomock"
)

func readyMockDisk(t *testing.T, ctrl *gomock.Controller, options CreateOptions) (*mock_metadata.MockBlockMetadata, *Disk) {
	md := mock_metadata.NewMockBlockMetadata(ctrl)
	md.EXPECT().Init(DefaultCapacity)

	d, err := newDisk(nil, md, options)
	require.NoError(t, err)

	return md, d
}

func TestMockAllocateCommitsRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	md, d := readyMockDisk(t, ctrl, CreateOptions{})

	request := metadata.AllocationRequest{
		Type:       metadata.AllocationRequestBestFit,
		Offset:     500,
		Size:       100,
		RegionSize: 300,
	}

	gomock.InOrder(
		md.EXPECT().AllocationRegion("a").Return(metadata.Region{}, errors.Wrap(memutils.NotFoundError, "a")),
		md.EXPECT().CreateAllocationRequest(100).Return(true, request, nil),
		md.EXPECT().Alloc(request, "a").Return(nil),
	)

	offset, err := d.Allocate("a", 100)
	require.NoError(t, err)
	require.Equal(t, 500, offset)
}

func TestMockAllocateNoSpace(t *testing.T) {
	ctrl := gomock.NewController(t)
	md, d := readyMockDisk(t, ctrl, CreateOptions{})

	md.EXPECT().AllocationRegion("a").Return(metadata.Region{}, memutils.NotFoundError)
	md.EXPECT().CreateAllocationRequest(100).Return(false, metadata.AllocationRequest{}, nil)

	_, err := d.Allocate("a", 100)
	require.True(t, errors.Is(err, memutils.NoSpaceError))
}

func TestMockAllocateSizeCheckedBeforeSearch(t *testing.T) {
	ctrl := gomock.NewController(t)
	md, d := readyMockDisk(t, ctrl, CreateOptions{})

	md.EXPECT().AllocationRegion("a").Return(metadata.Region{}, memutils.NotFoundError)

	_, err := d.Allocate("a", 17)
	require.True(t, errors.Is(err, memutils.SizeOutOfRangeError))
}

func TestMockAllocatePropagatesErrors(t *testing.T) {
	lookupErr := errors.New("lookup failed")
	requestErr := errors.New("request failed")
	commitErr := errors.New("stale request")

	t.Run("Lookup", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		md, d := readyMockDisk(t, ctrl, CreateOptions{})

		md.EXPECT().AllocationRegion("a").Return(metadata.Region{}, lookupErr)

		_, err := d.Allocate("a", 100)
		require.ErrorIs(t, err, lookupErr)
	})

	t.Run("Request", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		md, d := readyMockDisk(t, ctrl, CreateOptions{})

		md.EXPECT().AllocationRegion("a").Return(metadata.Region{}, memutils.NotFoundError)
		md.EXPECT().CreateAllocationRequest(100).Return(false, metadata.AllocationRequest{}, requestErr)

		_, err := d.Allocate("a", 100)
		require.ErrorIs(t, err, requestErr)
	})

	t.Run("Commit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		md, d := readyMockDisk(t, ctrl, CreateOptions{})

		request := metadata.AllocationRequest{Type: metadata.AllocationRequestTailAppend, Offset: 10, Size: 100}
		md.EXPECT().AllocationRegion("a").Return(metadata.Region{}, memutils.NotFoundError)
		md.EXPECT().CreateAllocationRequest(100).Return(true, request, nil)
		md.EXPECT().Alloc(request, "a").Return(commitErr)

		offset, err := d.Allocate("a", 100)
		require.ErrorIs(t, err, commitErr)
		require.Equal(t, -1, offset)
	})
}

func TestMockAllocateExistingOwner(t *testing.T) {
	ctrl := gomock.NewController(t)
	md, d := readyMockDisk(t, ctrl, CreateOptions{})

	md.EXPECT().AllocationRegion("a").Return(metadata.Region{Start: 0, Size: 100, Owner: "a"}, nil)

	_, err := d.Allocate("a", 100)
	require.True(t, errors.Is(err, memutils.OwnerExistsError))
}

func TestMockRelease(t *testing.T) {
	ctrl := gomock.NewController(t)
	md, d := readyMockDisk(t, ctrl, CreateOptions{})

	md.EXPECT().AllocationRegion("a").Return(metadata.Region{Start: 40, Size: 100, Owner: "a"}, nil)
	md.EXPECT().Free("a").Return(nil)
	require.NoError(t, d.Release("a"))

	md.EXPECT().AllocationRegion("ghost").Return(metadata.Region{}, memutils.NotFoundError)
	require.True(t, errors.Is(d.Release("ghost"), memutils.NotFoundError))
}

func TestMockValidate(t *testing.T) {
	ctrl := gomock.NewController(t)
	md, d := readyMockDisk(t, ctrl, CreateOptions{Flags: CreateExternallySynchronized})
	require.False(t, d.mutex.UseMutex)

	validateErr := errors.New("regions overlap")
	md.EXPECT().Validate().Return(validateErr)
	require.ErrorIs(t, d.Validate(), validateErr)

	md.EXPECT().Validate().Return(nil)
	require.NoError(t, d.Validate())
}

func TestMockStatusVisitsRegions(t *testing.T) {
	ctrl := gomock.NewController(t)
	md, d := readyMockDisk(t, ctrl, CreateOptions{})

	md.EXPECT().AllocationCount().Return(1)
	md.EXPECT().FreeRegionsCount().Return(1)
	md.EXPECT().VisitAllRegions(gomock.Any()).DoAndReturn(func(handleRegion func(metadata.Region, bool) error) error {
		require.NoError(t, handleRegion(metadata.Region{Start: 0, Size: 100, Owner: "a"}, false))
		require.NoError(t, handleRegion(metadata.Region{Start: 100, Size: 368540}, true))
		return nil
	})

	require.Equal(t, Status{
		Capacity: DefaultCapacity,
		Occupied: []metadata.Region{{Start: 0, Size: 100, Owner: "a"}},
		Free:     []metadata.Region{{Start: 100, Size: 368540}},
	}, d.Status())
}
