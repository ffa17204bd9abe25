// Package shm implements the shared memory pool: a named, growable
// segment mapped into one or more processes.
//
// A pool is backed by a regular file or a POSIX shared memory object
// (a file under /dev/shm on Linux). Each process maps the whole
// segment; when one process expands it, the authoritative size in the
// pool header changes and other processes remap lazily the next time
// they call CheckSizeAndRemap. Consumers therefore never hold a
// mapping address across a remap: they keep 64-bit offsets and convert
// to local addresses transiently through At or Bytes.
package shm
