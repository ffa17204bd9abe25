package prefixtree

import "github.com/shmkit/shmkit/internal/format"

// Iterator walks the tree depth-first, yielding keys in ascending
// lexicographic order: a node's own value comes before its child
// slots, and slots are visited in byte order. Concurrent readers do
// not invalidate an iterator; concurrent writers leave the sequence
// undefined.
type Iterator struct {
	t       *Tree
	stack   []iterFrame
	key     []byte
	val     Value
	started bool
	done    bool
}

type iterFrame struct {
	node      uint64
	prefixLen int
	next      int // -1 while the node's own value is pending
}

// Iter returns a fresh iterator positioned before the first key.
func (t *Tree) Iter() *Iterator {
	return &Iterator{t: t}
}

// Reset repositions the iterator before the first key.
func (it *Iterator) Reset() {
	it.started = false
	it.done = false
	it.stack = it.stack[:0]
	it.key = it.key[:0]
}

// Next advances to the next key and reports whether one exists.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if err := it.t.pool.CheckSizeAndRemap(); err != nil {
		it.done = true
		return false
	}
	data := it.t.pool.Bytes()
	if !it.started {
		it.started = true
		it.stack = append(it.stack[:0], iterFrame{node: it.t.rootOff(data), next: -1})
		it.key = it.key[:0]
	}
	for len(it.stack) > 0 {
		f := &it.stack[len(it.stack)-1]
		if f.next < 0 {
			f.next = 0
			if tag := nodeValueTag(data, f.node); tag != TagMissing {
				it.key = it.key[:f.prefixLen]
				it.val = it.t.readValue(data, tag, f.node+format.NodeValueOffset)
				return true
			}
		}
		start := nodeChildStart(data, f.node)
		count := nodeChildCount(data, f.node)
		descended := false
		for f.next < count {
			idx := f.next
			f.next++
			s := slotOffByIndex(f.node, idx)
			tag := slotTag(data, s)
			if tag == TagMissing {
				continue
			}
			it.key = append(it.key[:f.prefixLen], byte(start+idx))
			if tag == tagSubNode {
				child := iterFrame{
					node:      slotPayload(data, s),
					prefixLen: f.prefixLen + 1,
					next:      -1,
				}
				it.stack = append(it.stack, child)
				descended = true
				break
			}
			it.val = it.t.readValue(data, tag, s+format.SlotPayloadOffset)
			return true
		}
		if descended {
			continue
		}
		it.stack = it.stack[:len(it.stack)-1]
	}
	it.done = true
	return false
}

// Key returns a copy of the current key. Valid after a true Next.
func (it *Iterator) Key() []byte {
	return append([]byte(nil), it.key...)
}

// Value returns the current value. Valid after a true Next.
func (it *Iterator) Value() Value {
	return it.val
}
