// Package prefixtree implements a radix trie of byte-string keys to
// variant values, stored entirely inside a shared pool.
//
// Nodes and string values are blocks handed out by a shm/alloc
// Allocator, linked by offsets so that every process attached to the
// pool sees the same tree. A key's value lives either in the value
// slot of the node whose path spells the key, or directly in a child
// slot of the node one byte short of it: a terminal slot value costs
// no node of its own, and erase collapses childless valued nodes back
// into their parent's slot. The node structure therefore stays compact
// under mutation without an explicit rebuild.
//
// Concurrency follows a single-writer discipline: any number of
// processes may read while no writer is active, and writers are
// expected to serialize among themselves. Every public entry point
// re-checks the pool size so readers observe expansions performed by
// other processes. Integer and double slots are written and read with
// atomic word operations, which is what makes Incr observable mid-run
// by concurrent readers.
package prefixtree
