package alloc

import "github.com/shmkit/shmkit/shm"

// Allocator hands out and reclaims offsets within a pool. All methods
// deal in payload offsets: the 8-aligned position of the usable bytes,
// not of the block metadata that precedes them.
//
// Implementations:
//   - SimpleAllocator: first-fit over a doubly-linked allocated-block
//     list; free space is the gaps between blocks.
//
// A segregated-list discipline can be slotted in behind this interface
// for faster allocation at similar space cost; exactly one concrete
// allocator manages a given pool.
type Allocator interface {
	// Allocate returns the offset of a block with at least n usable
	// bytes, expanding the pool if needed. Fails with ErrOutOfMemory
	// when expansion cannot satisfy the request.
	Allocate(n uint64) (uint64, error)

	// Free releases a previously returned offset. Offsets that are
	// misaligned or outside the arena are always rejected; any other
	// offset that is not a live block is detected only when debug
	// checks are enabled.
	Free(off uint64) error

	// BlockSize returns the usable size of the block at off.
	BlockSize(off uint64) uint64

	// BytesAllocated returns the sum of live block sizes.
	BytesAllocated() uint64

	// BytesFree returns the bytes available in the arena without
	// expanding the pool.
	BytesFree() uint64

	// BaseObjectOffset returns the well-known slot where a consumer
	// stashed the offset of its root structure, or zero if unset.
	// Reopening the allocator yields the same value.
	BaseObjectOffset() uint64

	// SetBaseObjectOffset records the consumer's root structure offset.
	SetBaseObjectOffset(off uint64)

	// Pool returns the pool this allocator manages.
	Pool() *shm.Pool

	// Verify walks the block list and cross-checks the accounting
	// counters, returning ErrCorrupt on any inconsistency.
	Verify() error
}
