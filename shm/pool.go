package shm

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/shmkit/shmkit/internal/format"
)

// Backing selects the storage behind a pool.
type Backing int

const (
	// BackingFile maps a regular file at the path given as the pool name.
	BackingFile Backing = iota

	// BackingSHM maps a POSIX shared memory object. On Linux this is a
	// file under /dev/shm, which can be resized after creation; on other
	// platforms the pool transparently uses a regular file at the pool
	// name, as with BackingFile.
	BackingSHM
)

// Option configures Open.
type Option func(*Pool)

// WithMaxSize caps the pool size. Expansions beyond the cap fail with
// ErrExceedsMax. Zero (the default) means unbounded.
func WithMaxSize(n uint64) Option {
	return func(p *Pool) { p.max = n }
}

// WithBacking selects the backing store. The default is BackingFile.
func WithBacking(b Backing) Option {
	return func(p *Pool) { p.backing = b }
}

// Pool is a named shared segment of dynamic size. The first 8 bytes of
// the segment hold the authoritative size; the rest belongs to
// whatever structure is layered on top (see shm/alloc).
//
// The mapping held by a Pool is per-process and may lag the true
// segment size. Every consumer must call CheckSizeAndRemap before
// dereferencing offsets that another process may have created.
type Pool struct {
	name    string
	path    string
	backing Backing
	max     uint64

	fd   int
	data []byte
}

// Open creates or attaches to the named segment. Creation initializes
// the segment to one page and records that size in the header;
// attaching maps the segment at its current size.
func Open(name string, opts ...Option) (*Pool, error) {
	p := &Pool{name: name, fd: -1}
	for _, opt := range opts {
		opt(p)
	}
	p.path = segmentPath(name, p.backing)

	fd, created, err := openSegment(p.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCannotOpen, p.path, err)
	}
	p.fd = fd

	if created {
		if err := truncateSegment(p.fd, format.PageSize); err != nil {
			closeSegment(p.fd)
			removeSegment(p.path)
			return nil, fmt.Errorf("%w: %s: %v", ErrCannotResize, p.path, err)
		}
		p.data, err = mapSegment(p.fd, format.PageSize)
		if err != nil {
			closeSegment(p.fd)
			removeSegment(p.path)
			return nil, fmt.Errorf("%w: %s: %v", ErrCannotOpen, p.path, err)
		}
		atomic.StoreUint64(p.Word(format.PoolSizeOffset), format.PageSize)
		return p, nil
	}

	size, err := segmentSize(p.fd)
	if err != nil {
		closeSegment(p.fd)
		return nil, fmt.Errorf("%w: %s: %v", ErrCannotOpen, p.path, err)
	}
	// A creator that lost the race to us may not have truncated yet.
	size, err = waitNonZero(p.fd, size)
	if err != nil {
		closeSegment(p.fd)
		return nil, fmt.Errorf("%w: %s: %v", ErrCannotOpen, p.path, err)
	}
	p.data, err = mapSegment(p.fd, size)
	if err != nil {
		closeSegment(p.fd)
		return nil, fmt.Errorf("%w: %s: %v", ErrCannotOpen, p.path, err)
	}
	return p, nil
}

// Name returns the name the pool was opened with.
func (p *Pool) Name() string {
	return p.name
}

// MaxSize returns the configured size cap, or zero if unbounded.
func (p *Pool) MaxSize() uint64 {
	return p.max
}

// Size returns the segment size as observed by this process. It may
// lag the authoritative size until CheckSizeAndRemap is called.
func (p *Pool) Size() uint64 {
	return uint64(len(p.data))
}

// Bytes returns this process's view of the segment. The slice is valid
// only until the next Expand or CheckSizeAndRemap.
func (p *Pool) Bytes() []byte {
	return p.data
}

// At returns a transient view of the segment starting at offset. Valid
// only until the next Expand or CheckSizeAndRemap.
func (p *Pool) At(off uint64) []byte {
	return p.data[off:]
}

// Word returns a pointer suitable for sync/atomic access to the 8-byte
// word at off. The offset must be 8-aligned; every payload the
// allocator hands out is. Like At, the pointer is valid only until the
// next remap.
func (p *Pool) Word(off uint64) *uint64 {
	return (*uint64)(unsafe.Pointer(&p.data[off]))
}

// Expand grows the segment to at least newSize bytes, rounded up to a
// page multiple. The new size is published to the header with release
// semantics and this process's view is remapped. Shrinking is not
// supported; a newSize at or below the current size is a no-op.
func (p *Pool) Expand(newSize uint64) error {
	if newSize <= p.Size() {
		return nil
	}
	newSize = format.AlignPage(newSize)
	if p.max != 0 && newSize > p.max {
		return fmt.Errorf("%w: %d > %d", ErrExceedsMax, newSize, p.max)
	}
	if err := truncateSegment(p.fd, newSize); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCannotResize, p.path, err)
	}
	atomic.StoreUint64(p.Word(format.PoolSizeOffset), newSize)
	return p.CheckSizeAndRemap()
}

// CheckSizeAndRemap compares the authoritative size in the header with
// this process's mapped size and remaps if the segment has grown.
// Callers must invoke this before dereferencing any offset another
// process may have produced.
func (p *Pool) CheckSizeAndRemap() error {
	size := atomic.LoadUint64(p.Word(format.PoolSizeOffset))
	if size == p.Size() {
		return nil
	}
	if err := unmapSegment(p.data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCannotOpen, p.path, err)
	}
	data, err := mapSegment(p.fd, size)
	if err != nil {
		p.data = nil
		return fmt.Errorf("%w: %s: %v", ErrCannotOpen, p.path, err)
	}
	p.data = data
	return nil
}

// Close unmaps the segment and closes the descriptor. The segment
// itself persists until Delete is called.
func (p *Pool) Close() error {
	var first error
	if p.data != nil {
		first = unmapSegment(p.data)
		p.data = nil
	}
	if p.fd >= 0 {
		if err := closeSegment(p.fd); err != nil && first == nil {
			first = err
		}
		p.fd = -1
	}
	return first
}

// Delete removes the named segment and reports whether it existed.
func Delete(name string, backing Backing) (bool, error) {
	existed, err := removeSegment(segmentPath(name, backing))
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCannotOpen, name, err)
	}
	return existed, nil
}
