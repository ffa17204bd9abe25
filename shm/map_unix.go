//go:build unix

package shm

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sys/unix"
)

// shmDir is where POSIX shared memory objects live on Linux. Mapping a
// file there is exactly what shm_open does under the hood, and unlike
// the raw shm API the file can be ftruncated repeatedly.
const shmDir = "/dev/shm"

// segmentPath resolves a pool name. BackingSHM maps under shmDir on
// Linux; on other platforms it falls back to a regular file at name.
func segmentPath(name string, backing Backing) string {
	if backing == BackingSHM && runtime.GOOS == "linux" {
		return filepath.Join(shmDir, name)
	}
	return name
}

// openSegment opens the segment, creating it exclusively if it does
// not exist. Reports whether this call created it.
func openSegment(path string) (fd int, created bool, err error) {
	fd, err = unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0o666)
	if err == nil {
		return fd, true, nil
	}
	if !errors.Is(err, unix.EEXIST) {
		return -1, false, err
	}
	fd, err = unix.Open(path, unix.O_RDWR, 0o666)
	if err != nil {
		return -1, false, err
	}
	return fd, false, nil
}

func truncateSegment(fd int, size uint64) error {
	return unix.Ftruncate(fd, int64(size))
}

func segmentSize(fd int) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return 0, err
	}
	return uint64(st.Size), nil
}

// waitNonZero waits briefly for a racing creator to finish its initial
// truncate. A zero-length segment cannot be mapped.
func waitNonZero(fd int, size uint64) (uint64, error) {
	deadline := time.Now().Add(time.Second)
	for size == 0 {
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("segment is empty")
		}
		time.Sleep(time.Millisecond)
		var err error
		size, err = segmentSize(fd)
		if err != nil {
			return 0, err
		}
	}
	return size, nil
}

func mapSegment(fd int, size uint64) ([]byte, error) {
	return unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func unmapSegment(data []byte) error {
	err := unix.Munmap(data)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}

func closeSegment(fd int) error {
	return unix.Close(fd)
}

// removeSegment unlinks the segment and reports whether it existed.
func removeSegment(path string) (bool, error) {
	err := unix.Unlink(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.ENOENT) {
		return false, nil
	}
	return false, err
}
