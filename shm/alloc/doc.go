// Package alloc implements offset-based allocation inside a shared
// pool.
//
// The allocator's entire state lives in the segment itself: the pool
// header carries the accounting counters and the ends of a
// doubly-linked list of allocated blocks, and each block is prefixed
// by its own metadata. Free space is the gaps between consecutive
// blocks, so freeing a block coalesces with both neighbors by
// construction. Because every link is an offset, any process that maps
// the pool sees the same allocator.
//
// Allocation is first-fit in address order. A per-process append hint
// skips the walk while this process last saw the arena gap-free and the
// shared tail has not moved, which makes fill-only workloads O(1) per
// allocation. The hint is dropped when this process frees a block; a
// gap opened by another process's Free behind an unchanged tail is not
// reused while the hint stands.
package alloc
