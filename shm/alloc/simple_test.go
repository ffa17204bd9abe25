//go:build unix

package alloc

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shmkit/shmkit/internal/format"
	"github.com/shmkit/shmkit/shm"
)

func testAllocator(t *testing.T, opts ...shm.Option) *SimpleAllocator {
	t.Helper()
	p, err := shm.Open(filepath.Join(t.TempDir(), "pool"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	a, err := NewSimple(p)
	require.NoError(t, err)
	return a
}

func TestAllocateAccounting(t *testing.T) {
	a := testAllocator(t)

	require.Zero(t, a.BytesAllocated())

	off1, err := a.Allocate(100)
	require.NoError(t, err)
	off2, err := a.Allocate(50)
	require.NoError(t, err)

	require.Equal(t, uint64(150), a.BytesAllocated())
	require.Equal(t, uint64(100), a.BlockSize(off1))
	require.Equal(t, uint64(50), a.BlockSize(off2))
	require.NoError(t, a.Verify())

	require.NoError(t, a.Free(off1))
	require.Equal(t, uint64(50), a.BytesAllocated())
	require.NoError(t, a.Free(off2))
	require.Zero(t, a.BytesAllocated())

	// Empty arena: everything past the header is free again.
	require.Equal(t, a.Pool().Size()-format.PoolHeaderSize, a.BytesFree())
	require.NoError(t, a.Verify())
}

func TestPayloadsDoNotOverlap(t *testing.T) {
	a := testAllocator(t)

	off1, err := a.Allocate(64)
	require.NoError(t, err)
	off2, err := a.Allocate(64)
	require.NoError(t, err)

	data := a.Pool().Bytes()
	for i := 0; i < 64; i++ {
		data[off1+uint64(i)] = 0xAA
	}
	for i := 0; i < 64; i++ {
		data[off2+uint64(i)] = 0xBB
	}
	for i := 0; i < 64; i++ {
		require.Equal(t, byte(0xAA), data[off1+uint64(i)], "payload 1 corrupted at %d", i)
	}
	require.NoError(t, a.Verify())
}

func TestFirstFitReusesGap(t *testing.T) {
	a := testAllocator(t)

	off1, err := a.Allocate(64)
	require.NoError(t, err)
	off2, err := a.Allocate(64)
	require.NoError(t, err)
	_, err = a.Allocate(64)
	require.NoError(t, err)

	// Freeing the middle block opens a gap; the next same-size
	// allocation lands in it.
	require.NoError(t, a.Free(off2))
	off4, err := a.Allocate(64)
	require.NoError(t, err)
	require.Equal(t, off2, off4)

	// A smaller request also prefers the first gap in address order.
	require.NoError(t, a.Free(off1))
	off5, err := a.Allocate(8)
	require.NoError(t, err)
	require.Equal(t, off1, off5)

	require.NoError(t, a.Verify())
}

func TestAllocateZeroBytes(t *testing.T) {
	a := testAllocator(t)

	off, err := a.Allocate(0)
	require.NoError(t, err)
	require.Zero(t, a.BlockSize(off))
	require.Zero(t, a.BytesAllocated())
	require.NoError(t, a.Verify())
	require.NoError(t, a.Free(off))
}

func TestBaseObjectOffsetPersists(t *testing.T) {
	p, err := shm.Open(filepath.Join(t.TempDir(), "pool"))
	require.NoError(t, err)
	defer p.Close()

	a, err := NewSimple(p)
	require.NoError(t, err)
	require.Zero(t, a.BaseObjectOffset())

	off, err := a.Allocate(24)
	require.NoError(t, err)
	a.SetBaseObjectOffset(off)

	// A second allocator over the same pool sees identical state.
	b, err := NewSimple(p)
	require.NoError(t, err)
	require.Equal(t, off, b.BaseObjectOffset())
	require.Equal(t, uint64(24), b.BlockSize(off))
	require.Equal(t, a.BytesAllocated(), b.BytesAllocated())
}

func TestFreeBadOffset(t *testing.T) {
	a := testAllocator(t)

	require.ErrorIs(t, a.Free(3), ErrBadOffset)
	require.ErrorIs(t, a.Free(format.PoolHeaderSize), ErrBadOffset)
}

func TestDoubleFreeDetected(t *testing.T) {
	old := debugChecks
	debugChecks = true
	defer func() { debugChecks = old }()

	a := testAllocator(t)

	off, err := a.Allocate(32)
	require.NoError(t, err)
	require.NoError(t, a.Free(off))
	require.ErrorIs(t, a.Free(off), ErrBadOffset)
}

func TestExpansionBeyondMax(t *testing.T) {
	a := testAllocator(t, shm.WithMaxSize(2*format.PageSize))

	before := a.BytesAllocated()
	_, err := a.Allocate(8 * format.PageSize)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, before, a.BytesAllocated())
	require.NoError(t, a.Verify())
}

// TestGrowthAccounting fills the pool with random-sized blocks until it
// has grown past 32 MiB, verifying the accounting at every step, then
// frees everything and checks the arena is fully reclaimed.
func TestGrowthAccounting(t *testing.T) {
	if testing.Short() {
		t.Skip("fills a 32 MiB pool")
	}
	a := testAllocator(t)

	const target = 32 << 20
	rng := rand.New(rand.NewSource(1))

	var offs []uint64
	var requested uint64
	for a.Pool().Size() < target {
		n := uint64(rng.Intn(1025))
		off, err := a.Allocate(n)
		require.NoError(t, err)
		offs = append(offs, off)
		requested += n
		require.Equal(t, requested, a.BytesAllocated())
	}
	require.NoError(t, a.Verify())

	for _, off := range offs {
		require.NoError(t, a.Free(off))
	}
	require.Zero(t, a.BytesAllocated())
	require.Equal(t, a.Pool().Size()-format.PoolHeaderSize, a.BytesFree())
	require.NoError(t, a.Verify())
}
