package alloc

import "errors"

var (
	// ErrOutOfMemory indicates no fit was found and pool expansion
	// failed or is exhausted. The failed operation leaves the allocator
	// unchanged.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrBadOffset indicates an offset that does not refer to an
	// allocated block.
	ErrBadOffset = errors.New("alloc: bad block offset")

	// ErrCorrupt indicates the block list or accounting failed an
	// integrity check. Unrecoverable.
	ErrCorrupt = errors.New("alloc: pool corrupted")
)
