package alloc

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/shmkit/shmkit/internal/format"
	"github.com/shmkit/shmkit/shm"
)

// Runtime flag for expensive Free validation - controlled by the
// SHMKIT_ALLOC_CHECKS env var.
var debugChecks = os.Getenv("SHMKIT_ALLOC_CHECKS") != ""

// SimpleAllocator manages a pool as a doubly-linked list of allocated
// blocks in address order. The gaps between consecutive blocks are the
// free space, so there are no free-block records to maintain and
// adjacent free space is coalesced by construction.
//
// Allocation is first-fit: the list is walked in address order and the
// block is placed in the first gap that holds header plus payload.
// When no gap fits, the pool is doubled (repeatedly if necessary) and
// the block is placed after the tail.
type SimpleAllocator struct {
	pool *shm.Pool

	// fastTail is the tail block offset as of the last moment this
	// process observed the arena to be gap-free. While it still matches
	// the shared tail, allocations start the first-fit walk there
	// instead of at the head, which makes append-only workloads O(1).
	// Reset on Free; ignored once another process moves the tail.
	fastTail uint64
}

// NewSimple creates or reattaches the allocator for the given pool.
// The first allocator against a fresh pool claims it by CAS on the
// initialization flag; the segment arrives zero-filled, so the empty
// list and zeroed counters need no further setup.
func NewSimple(p *shm.Pool) (*SimpleAllocator, error) {
	if err := p.CheckSizeAndRemap(); err != nil {
		return nil, err
	}
	atomic.CompareAndSwapUint64(p.Word(format.PoolInitOffset), 0, 1)
	return &SimpleAllocator{pool: p}, nil
}

// Pool returns the pool this allocator manages.
func (a *SimpleAllocator) Pool() *shm.Pool {
	return a.pool
}

// effectiveSize is the arena footprint of a block with payload size n.
func effectiveSize(n uint64) uint64 {
	return format.BlockHeaderSize + format.Align8(n)
}

func (a *SimpleAllocator) u64(off uint64) uint64 {
	return format.ReadU64(a.pool.Bytes(), int(off))
}

func (a *SimpleAllocator) putU64(off, v uint64) {
	format.PutU64(a.pool.Bytes(), int(off), v)
}

// Allocate returns the offset of a block with at least n usable bytes.
func (a *SimpleAllocator) Allocate(n uint64) (uint64, error) {
	if err := a.pool.CheckSizeAndRemap(); err != nil {
		return 0, err
	}
	needed := effectiveSize(n)
	if off, ok := a.place(n, needed); ok {
		return off, nil
	}
	if err := a.expandFor(needed); err != nil {
		return 0, err
	}
	off, ok := a.place(n, needed)
	if !ok {
		return 0, ErrOutOfMemory
	}
	return off, nil
}

// place walks the block list first-fit and links a new block of payload
// size n into the first gap of at least needed bytes. Returns the
// payload offset.
func (a *SimpleAllocator) place(n, needed uint64) (uint64, bool) {
	size := a.pool.Size()
	head := a.u64(format.PoolHeadOffset)
	tail := a.u64(format.PoolTailOffset)

	prev := uint64(0)
	pos := uint64(format.PoolHeaderSize)
	cur := head
	sawGap := false

	if a.fastTail != 0 && a.fastTail == tail {
		prev = tail
		pos = tail + effectiveSize(a.u64(tail+format.BlockSizeOffset))
		cur = 0
	}

	for {
		gapEnd := size
		if cur != 0 {
			gapEnd = cur
		}
		if gapEnd-pos >= needed {
			blockOff := pos
			a.linkBlock(blockOff, n, prev, cur)
			if !sawGap && cur == 0 {
				a.fastTail = blockOff
			}
			return blockOff + format.BlockHeaderSize, true
		}
		if cur == 0 {
			return 0, false
		}
		if gapEnd > pos {
			sawGap = true
		}
		prev = cur
		pos = cur + effectiveSize(a.u64(cur+format.BlockSizeOffset))
		cur = a.u64(cur + format.BlockNextOffset)
	}
}

// linkBlock writes the block header at blockOff and splices it between
// prev and next, updating list ends and accounting.
func (a *SimpleAllocator) linkBlock(blockOff, n, prev, next uint64) {
	a.putU64(blockOff+format.BlockPrevOffset, prev)
	a.putU64(blockOff+format.BlockNextOffset, next)
	a.putU64(blockOff+format.BlockSizeOffset, n)

	if prev == 0 {
		a.putU64(format.PoolHeadOffset, blockOff)
	} else {
		a.putU64(prev+format.BlockNextOffset, blockOff)
	}
	if next == 0 {
		a.putU64(format.PoolTailOffset, blockOff)
	} else {
		a.putU64(next+format.BlockPrevOffset, blockOff)
	}

	a.putU64(format.PoolBytesAllocatedOffset, a.u64(format.PoolBytesAllocatedOffset)+n)
	a.putU64(format.PoolBytesCommittedOffset, a.u64(format.PoolBytesCommittedOffset)+effectiveSize(n))
}

// expandFor grows the pool until the gap after the tail fits needed
// bytes. Doubles each step so expansion stays rare.
func (a *SimpleAllocator) expandFor(needed uint64) error {
	tail := a.u64(format.PoolTailOffset)
	tailEnd := uint64(format.PoolHeaderSize)
	if tail != 0 {
		tailEnd = tail + effectiveSize(a.u64(tail+format.BlockSizeOffset))
	}
	target := a.pool.Size() * 2
	for target < tailEnd+needed {
		target *= 2
	}
	if err := a.pool.Expand(target); err != nil {
		return fmt.Errorf("%w (pool: %v)", ErrOutOfMemory, err)
	}
	return nil
}

// Free releases the block at the given payload offset.
func (a *SimpleAllocator) Free(off uint64) error {
	if err := a.pool.CheckSizeAndRemap(); err != nil {
		return err
	}
	if off < format.PoolHeaderSize+format.BlockHeaderSize || off%8 != 0 || off > a.pool.Size() {
		return fmt.Errorf("%w: %#x", ErrBadOffset, off)
	}
	blockOff := off - format.BlockHeaderSize
	if debugChecks && !a.isLive(blockOff) {
		return fmt.Errorf("%w: %#x is not a live block", ErrBadOffset, off)
	}

	n := a.u64(blockOff + format.BlockSizeOffset)
	prev := a.u64(blockOff + format.BlockPrevOffset)
	next := a.u64(blockOff + format.BlockNextOffset)

	if prev == 0 {
		a.putU64(format.PoolHeadOffset, next)
	} else {
		a.putU64(prev+format.BlockNextOffset, next)
	}
	if next == 0 {
		a.putU64(format.PoolTailOffset, prev)
	} else {
		a.putU64(next+format.BlockPrevOffset, prev)
	}

	a.putU64(format.PoolBytesAllocatedOffset, a.u64(format.PoolBytesAllocatedOffset)-n)
	a.putU64(format.PoolBytesCommittedOffset, a.u64(format.PoolBytesCommittedOffset)-effectiveSize(n))
	a.fastTail = 0
	return nil
}

// isLive walks the list looking for blockOff.
func (a *SimpleAllocator) isLive(blockOff uint64) bool {
	for cur := a.u64(format.PoolHeadOffset); cur != 0; cur = a.u64(cur + format.BlockNextOffset) {
		if cur == blockOff {
			return true
		}
		if cur > blockOff {
			return false
		}
	}
	return false
}

// BlockSize returns the usable size of the block at off.
func (a *SimpleAllocator) BlockSize(off uint64) uint64 {
	return a.u64(off - format.BlockHeaderSize + format.BlockSizeOffset)
}

// BytesAllocated returns the sum of live block sizes.
func (a *SimpleAllocator) BytesAllocated() uint64 {
	return a.u64(format.PoolBytesAllocatedOffset)
}

// BytesFree returns the arena bytes not committed to blocks.
func (a *SimpleAllocator) BytesFree() uint64 {
	return a.pool.Size() - format.PoolHeaderSize - a.u64(format.PoolBytesCommittedOffset)
}

// BaseObjectOffset returns the consumer's recorded root offset.
func (a *SimpleAllocator) BaseObjectOffset() uint64 {
	return a.u64(format.PoolBaseOffset)
}

// SetBaseObjectOffset records the consumer's root offset.
func (a *SimpleAllocator) SetBaseObjectOffset(off uint64) {
	a.putU64(format.PoolBaseOffset, off)
}

// Verify walks the block list and cross-checks the accounting counters.
func (a *SimpleAllocator) Verify() error {
	if err := a.pool.CheckSizeAndRemap(); err != nil {
		return err
	}
	size := a.pool.Size()
	var sumAllocated, sumCommitted uint64
	prev := uint64(0)
	cur := a.u64(format.PoolHeadOffset)
	for cur != 0 {
		if cur < format.PoolHeaderSize || cur+format.BlockHeaderSize > size {
			return fmt.Errorf("%w: block %#x out of bounds", ErrCorrupt, cur)
		}
		n := a.u64(cur + format.BlockSizeOffset)
		end := cur + effectiveSize(n)
		if end > size {
			return fmt.Errorf("%w: block %#x extends past pool end", ErrCorrupt, cur)
		}
		if a.u64(cur+format.BlockPrevOffset) != prev {
			return fmt.Errorf("%w: block %#x prev link mismatch", ErrCorrupt, cur)
		}
		if prev != 0 && cur < prev+effectiveSize(a.u64(prev+format.BlockSizeOffset)) {
			return fmt.Errorf("%w: blocks %#x and %#x overlap", ErrCorrupt, prev, cur)
		}
		sumAllocated += n
		sumCommitted += effectiveSize(n)
		prev = cur
		cur = a.u64(cur + format.BlockNextOffset)
	}
	if a.u64(format.PoolTailOffset) != prev {
		return fmt.Errorf("%w: tail mismatch", ErrCorrupt)
	}
	if got := a.u64(format.PoolBytesAllocatedOffset); got != sumAllocated {
		return fmt.Errorf("%w: bytes allocated %d, blocks sum to %d", ErrCorrupt, got, sumAllocated)
	}
	if got := a.u64(format.PoolBytesCommittedOffset); got != sumCommitted {
		return fmt.Errorf("%w: bytes committed %d, blocks sum to %d", ErrCorrupt, got, sumCommitted)
	}
	return nil
}
