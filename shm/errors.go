package shm

import "errors"

var (
	// ErrCannotOpen indicates the backing store could not be created or
	// attached. Fatal to this Pool, not to other pools.
	ErrCannotOpen = errors.New("shm: cannot open segment")

	// ErrCannotResize indicates the OS refused to extend the segment.
	ErrCannotResize = errors.New("shm: cannot resize segment")

	// ErrExceedsMax indicates an expansion would exceed the maximum
	// size the pool was opened with.
	ErrExceedsMax = errors.New("shm: expansion exceeds maximum pool size")
)
