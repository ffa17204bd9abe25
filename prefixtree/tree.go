package prefixtree

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/shmkit/shmkit/internal/format"
	"github.com/shmkit/shmkit/shm"
	"github.com/shmkit/shmkit/shm/alloc"
)

// Tree is a radix trie living inside a shared pool. All node and value
// links are offsets handed out by the allocator, so any process that
// opens the same pool and base offset operates on the same tree.
type Tree struct {
	alloc alloc.Allocator
	pool  *shm.Pool
	base  uint64
}

// New attaches to the tree whose header lives at base, creating it if
// base is zero and the allocator has no base object yet. Reopening the
// same (pool, base) pair attaches to the same tree.
func New(a alloc.Allocator, base uint64) (*Tree, error) {
	p := a.Pool()
	if err := p.CheckSizeAndRemap(); err != nil {
		return nil, err
	}
	if base == 0 {
		base = a.BaseObjectOffset()
	}
	if base == 0 {
		hdr, err := a.Allocate(format.TreeHeaderSize)
		if err != nil {
			return nil, err
		}
		// The root is full-width so its block never moves or changes
		// size; erasing the last key restores allocator accounting to
		// the creation baseline exactly.
		root, err := a.Allocate(nodeSizeFor(format.NodeFanout))
		if err != nil {
			a.Free(hdr)
			return nil, err
		}
		data := p.Bytes()
		initNode(data, root, 0, format.NodeFanout)
		format.PutU64(data, int(hdr+format.TreeRootOffset), root)
		format.PutU64(data, int(hdr+format.TreeItemsOffset), 0)
		format.PutU64(data, int(hdr+format.TreeNodesOffset), 1)
		a.SetBaseObjectOffset(hdr)
		base = hdr
	}
	return &Tree{alloc: a, pool: p, base: base}, nil
}

// Allocator returns the allocator backing this tree.
func (t *Tree) Allocator() alloc.Allocator {
	return t.alloc
}

func (t *Tree) rootOff(data []byte) uint64 {
	return format.ReadU64(data, int(t.base+format.TreeRootOffset))
}

func (t *Tree) setRootOff(data []byte, off uint64) {
	format.PutU64(data, int(t.base+format.TreeRootOffset), off)
}

func (t *Tree) addItems(data []byte, delta int64) {
	off := int(t.base + format.TreeItemsOffset)
	format.PutU64(data, off, uint64(int64(format.ReadU64(data, off))+delta))
}

func (t *Tree) addNodes(data []byte, delta int64) {
	off := int(t.base + format.TreeNodesOffset)
	format.PutU64(data, off, uint64(int64(format.ReadU64(data, off))+delta))
}

// Len returns the number of live keys.
func (t *Tree) Len() uint64 {
	t.pool.CheckSizeAndRemap()
	return format.ReadU64(t.pool.Bytes(), int(t.base+format.TreeItemsOffset))
}

// NodeCount returns the number of live nodes including the root, so it
// is always at least 1 and exactly 1 for an empty tree.
func (t *Tree) NodeCount() uint64 {
	t.pool.CheckSizeAndRemap()
	return format.ReadU64(t.pool.Bytes(), int(t.base+format.TreeNodesOffset))
}

func setNodeValue(data []byte, node uint64, tag Tag, payload uint64) {
	// Payload first, same as setSlot.
	format.PutU64(data, int(node+format.NodeValueOffset), payload)
	data[node+format.NodeValueTagOffset] = byte(tag)
}

// find walks the key and returns the tag and the offset of the 8-byte
// payload word of its value cell.
func (t *Tree) find(data []byte, key []byte) (Tag, uint64, bool) {
	cur := t.rootOff(data)
	for i := 0; i < len(key); i++ {
		s, inRange := nodeSlot(data, cur, key[i])
		if !inRange {
			return TagMissing, 0, false
		}
		switch st := slotTag(data, s); st {
		case tagSubNode:
			cur = slotPayload(data, s)
		case TagMissing:
			return TagMissing, 0, false
		default:
			if i == len(key)-1 {
				return st, s + format.SlotPayloadOffset, true
			}
			return TagMissing, 0, false
		}
	}
	vt := nodeValueTag(data, cur)
	if vt == TagMissing {
		return TagMissing, 0, false
	}
	return vt, cur + format.NodeValueOffset, true
}

// readValue materializes the value behind a cell. The payload word is
// acquire-loaded so concurrent increments are observed whole.
func (t *Tree) readValue(data []byte, tag Tag, payloadOff uint64) Value {
	payload := atomic.LoadUint64(t.pool.Word(payloadOff))
	switch tag {
	case TagBool:
		return BoolValue(payload != 0)
	case TagInt:
		return IntValue(int64(payload))
	case TagDouble:
		return DoubleValue(math.Float64frombits(payload))
	case TagString:
		n := format.ReadU64(data, int(payload))
		return StringValue(data[payload+format.StringLenSize : payload+format.StringLenSize+n])
	}
	return NullValue()
}

// At returns the value stored for key, or ErrNotFound.
func (t *Tree) At(key []byte) (Value, error) {
	if err := t.pool.CheckSizeAndRemap(); err != nil {
		return Value{}, err
	}
	data := t.pool.Bytes()
	tag, payloadOff, ok := t.find(data, key)
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return t.readValue(data, tag, payloadOff), nil
}

// TypeOf returns the tag of the value stored for key, or TagMissing.
// It never fails: an unreachable pool reads as missing.
func (t *Tree) TypeOf(key []byte) Tag {
	if err := t.pool.CheckSizeAndRemap(); err != nil {
		return TagMissing
	}
	tag, _, ok := t.find(t.pool.Bytes(), key)
	if !ok {
		return TagMissing
	}
	return tag
}

// Exists reports whether key is present.
func (t *Tree) Exists(key []byte) bool {
	return t.TypeOf(key) != TagMissing
}

// Insert stores v under key, overwriting any previous value. On any
// allocation failure the tree is left observably unchanged: all blocks
// a new key needs are obtained and initialized before the single slot
// write that links them in.
func (t *Tree) Insert(key []byte, v Value) error {
	if err := t.pool.CheckSizeAndRemap(); err != nil {
		return err
	}
	data := t.pool.Bytes()

	cur := t.rootOff(data)
	parentSlot := uint64(0)
	i := 0
descend:
	for i < len(key) {
		s, inRange := nodeSlot(data, cur, key[i])
		if !inRange {
			break
		}
		switch st := slotTag(data, s); st {
		case tagSubNode:
			parentSlot = s
			cur = slotPayload(data, s)
			i++
		case TagMissing:
			break descend
		default:
			if i == len(key)-1 {
				return t.storeValue(s+format.SlotTagOffset, s+format.SlotPayloadOffset,
					v, st, slotPayload(data, s))
			}
			break descend
		}
	}
	if i == len(key) {
		prior := nodeValueTag(data, cur)
		return t.storeValue(cur+format.NodeValueTagOffset, cur+format.NodeValueOffset,
			v, prior, format.ReadU64(data, int(cur+format.NodeValueOffset)))
	}
	return t.insertNew(data, key, i, cur, parentSlot, v)
}

// storeValue overwrites an existing value cell. The string block for
// the new value is allocated before the cell is touched; the old
// block, if any, is released after.
func (t *Tree) storeValue(tagOff, payloadOff uint64, v Value, prior Tag, priorPayload uint64) error {
	var strOff uint64
	if v.Tag == TagString {
		off, err := t.allocString(v.Str)
		if err != nil {
			return err
		}
		strOff = off
	}
	data := t.pool.Bytes()
	atomic.StoreUint64(t.pool.Word(payloadOff), encodePayload(v, strOff))
	data[tagOff] = byte(v.Tag)
	if prior == TagString {
		if err := t.alloc.Free(priorPayload); err != nil {
			return err
		}
	} else if prior == TagMissing {
		t.addItems(t.pool.Bytes(), 1)
	}
	return nil
}

func (t *Tree) allocString(s []byte) (uint64, error) {
	off, err := t.alloc.Allocate(format.StringLenSize + uint64(len(s)))
	if err != nil {
		return 0, err
	}
	data := t.pool.Bytes()
	format.PutU64(data, int(off), uint64(len(s)))
	copy(data[off+format.StringLenSize:], s)
	return off, nil
}

// insertNew places a key that has no cell yet. The walk stopped at
// node cur on key[i], with that byte either outside cur's child range
// (the node must be widened), in an empty slot, or in a slot holding
// another key's terminal value (which moves onto a new node so the
// path can continue through it).
func (t *Tree) insertNew(data []byte, key []byte, i int, cur, parentSlot uint64, v Value) error {
	b := key[i]
	rest := key[i+1:]

	var (
		widen          bool
		conv           bool
		slot           uint64
		oldSlotTag     Tag
		oldSlotPayload uint64
	)
	if s, ok := nodeSlot(data, cur, b); ok {
		slot = s
		if st := slotTag(data, s); st != TagMissing {
			conv = true
			oldSlotTag, oldSlotPayload = st, slotPayload(data, s)
		}
	} else {
		widen = true
	}

	var allocated []uint64
	rollback := func(err error) error {
		for _, off := range allocated {
			t.alloc.Free(off)
		}
		return err
	}

	var strOff uint64
	if v.Tag == TagString {
		off, err := t.alloc.Allocate(format.StringLenSize + uint64(len(v.Str)))
		if err != nil {
			return rollback(err)
		}
		allocated = append(allocated, off)
		strOff = off
	}

	chain := make([]uint64, len(rest))
	for j := range chain {
		off, err := t.alloc.Allocate(nodeSizeFor(1))
		if err != nil {
			return rollback(err)
		}
		allocated = append(allocated, off)
		chain[j] = off
	}

	var wideOff uint64
	var newStart, newCount int
	if widen {
		// The allocations above may have remapped the pool.
		data = t.pool.Bytes()
		oldStart := nodeChildStart(data, cur)
		oldCount := nodeChildCount(data, cur)
		if oldCount == 0 {
			newStart, newCount = int(b), 1
		} else {
			newStart = min(oldStart, int(b))
			newCount = max(oldStart+oldCount, int(b)+1) - newStart
		}
		off, err := t.alloc.Allocate(nodeSizeFor(newCount))
		if err != nil {
			return rollback(err)
		}
		allocated = append(allocated, off)
		wideOff = off
	}

	// Allocations may have expanded and remapped the pool.
	data = t.pool.Bytes()

	if v.Tag == TagString {
		format.PutU64(data, int(strOff), uint64(len(v.Str)))
		copy(data[strOff+format.StringLenSize:], v.Str)
	}

	// Build the new path bottom-up. Everything below stays private to
	// this writer until the final slot write links it in.
	contentTag, contentPayload := v.Tag, encodePayload(v, strOff)
	for j := len(chain) - 1; j >= 0; j-- {
		n := chain[j]
		initNode(data, n, int(rest[j]), 1)
		setSlot(data, slotOffByIndex(n, 0), contentTag, contentPayload)
		contentTag, contentPayload = tagSubNode, n
	}
	if conv {
		// The displaced terminal value moves onto the first new node.
		setNodeValue(data, chain[0], oldSlotTag, oldSlotPayload)
	}

	if widen {
		initNode(data, wideOff, newStart, newCount)
		setNodeValue(data, wideOff, nodeValueTag(data, cur),
			format.ReadU64(data, int(cur+format.NodeValueOffset)))
		oldStart := nodeChildStart(data, cur)
		for idx, n := 0, nodeChildCount(data, cur); idx < n; idx++ {
			old := slotOffByIndex(cur, idx)
			if slotTag(data, old) == TagMissing {
				continue
			}
			setSlot(data, slotOffByIndex(wideOff, oldStart+idx-newStart),
				slotTag(data, old), slotPayload(data, old))
		}
		setSlot(data, slotOffByIndex(wideOff, int(b)-newStart), contentTag, contentPayload)
		if parentSlot == 0 {
			t.setRootOff(data, wideOff)
		} else {
			setSlot(data, parentSlot, tagSubNode, wideOff)
		}
		if err := t.alloc.Free(cur); err != nil {
			return err
		}
		data = t.pool.Bytes()
	} else {
		setSlot(data, slot, contentTag, contentPayload)
	}

	t.addItems(data, 1)
	t.addNodes(data, int64(len(chain)))
	return nil
}

// walkStep records one edge of a root-to-node walk, for compaction.
type walkStep struct {
	node       uint64
	parentSlot uint64 // slot whose payload is node; 0 for the root
}

// Erase removes key if present and prunes the path it leaves behind.
// Absent keys are not an error.
func (t *Tree) Erase(key []byte) (bool, error) {
	if err := t.pool.CheckSizeAndRemap(); err != nil {
		return false, err
	}
	data := t.pool.Bytes()

	cur := t.rootOff(data)
	steps := []walkStep{{node: cur}}
	for i := 0; i < len(key); i++ {
		s, inRange := nodeSlot(data, cur, key[i])
		if !inRange {
			return false, nil
		}
		switch st := slotTag(data, s); st {
		case tagSubNode:
			cur = slotPayload(data, s)
			steps = append(steps, walkStep{node: cur, parentSlot: s})
		case TagMissing:
			return false, nil
		default:
			if i != len(key)-1 {
				return false, nil
			}
			payload := slotPayload(data, s)
			clearSlot(data, s)
			if st == TagString {
				if err := t.alloc.Free(payload); err != nil {
					return false, err
				}
			}
			if err := t.compact(steps); err != nil {
				return false, err
			}
			t.addItems(t.pool.Bytes(), -1)
			return true, nil
		}
	}
	vt := nodeValueTag(data, cur)
	if vt == TagMissing {
		return false, nil
	}
	payload := format.ReadU64(data, int(cur+format.NodeValueOffset))
	setNodeValue(data, cur, TagMissing, 0)
	if vt == TagString {
		if err := t.alloc.Free(payload); err != nil {
			return false, err
		}
	}
	if err := t.compact(steps); err != nil {
		return false, err
	}
	t.addItems(t.pool.Bytes(), -1)
	return true, nil
}

// compact walks back toward the root after an erase. Nodes left with
// no value and no occupied slot are freed; a non-root node left with a
// value but no occupied slot collapses into its parent's slot as a
// terminal value. The walk stops at the first node that stays, and the
// root always stays.
func (t *Tree) compact(steps []walkStep) error {
	data := t.pool.Bytes()
	for j := len(steps) - 1; j >= 1; j-- {
		n := steps[j]
		if occupiedSlots(data, n.node) > 0 {
			return nil
		}
		vt := nodeValueTag(data, n.node)
		if vt == TagMissing {
			clearSlot(data, n.parentSlot)
			if err := t.alloc.Free(n.node); err != nil {
				return err
			}
			data = t.pool.Bytes()
			t.addNodes(data, -1)
			continue
		}
		// Childless but valued: the value survives in the parent slot.
		setSlot(data, n.parentSlot, vt, format.ReadU64(data, int(n.node+format.NodeValueOffset)))
		if err := t.alloc.Free(n.node); err != nil {
			return err
		}
		t.addNodes(t.pool.Bytes(), -1)
		return nil
	}
	return nil
}

// IncrInt atomically adds delta to the integer stored at key, creating
// the key with value delta if absent. Fails with ErrTypeMismatch when
// the key holds any other type.
func (t *Tree) IncrInt(key []byte, delta int64) (int64, error) {
	if err := t.pool.CheckSizeAndRemap(); err != nil {
		return 0, err
	}
	tag, payloadOff, ok := t.find(t.pool.Bytes(), key)
	if !ok {
		if err := t.Insert(key, IntValue(delta)); err != nil {
			return 0, err
		}
		return delta, nil
	}
	if tag != TagInt {
		return 0, fmt.Errorf("%w: %q holds %s, want Int", ErrTypeMismatch, key, tag)
	}
	w := t.pool.Word(payloadOff)
	next := int64(atomic.LoadUint64(w)) + delta
	atomic.StoreUint64(w, uint64(next))
	return next, nil
}

// IncrDouble atomically adds delta to the double stored at key,
// creating the key with value delta if absent. Fails with
// ErrTypeMismatch when the key holds any other type.
func (t *Tree) IncrDouble(key []byte, delta float64) (float64, error) {
	if err := t.pool.CheckSizeAndRemap(); err != nil {
		return 0, err
	}
	tag, payloadOff, ok := t.find(t.pool.Bytes(), key)
	if !ok {
		if err := t.Insert(key, DoubleValue(delta)); err != nil {
			return 0, err
		}
		return delta, nil
	}
	if tag != TagDouble {
		return 0, fmt.Errorf("%w: %q holds %s, want Double", ErrTypeMismatch, key, tag)
	}
	w := t.pool.Word(payloadOff)
	next := math.Float64frombits(atomic.LoadUint64(w)) + delta
	atomic.StoreUint64(w, math.Float64bits(next))
	return next, nil
}

// Clear removes every key. The post state matches a freshly created
// tree, allocator accounting included: the fresh empty root is
// obtained first, so a full pool fails the call without damage.
func (t *Tree) Clear() error {
	if err := t.pool.CheckSizeAndRemap(); err != nil {
		return err
	}
	newRoot, err := t.alloc.Allocate(nodeSizeFor(format.NodeFanout))
	if err != nil {
		return err
	}
	data := t.pool.Bytes()
	initNode(data, newRoot, 0, format.NodeFanout)
	oldRoot := t.rootOff(data)
	t.setRootOff(data, newRoot)
	format.PutU64(data, int(t.base+format.TreeItemsOffset), 0)
	format.PutU64(data, int(t.base+format.TreeNodesOffset), 1)
	return t.freeSubtree(oldRoot)
}

// freeSubtree releases a detached node, its string values, and its
// descendants.
func (t *Tree) freeSubtree(node uint64) error {
	data := t.pool.Bytes()

	type child struct {
		tag     Tag
		payload uint64
	}
	var children []child
	for idx, n := 0, nodeChildCount(data, node); idx < n; idx++ {
		s := slotOffByIndex(node, idx)
		if tag := slotTag(data, s); tag != TagMissing {
			children = append(children, child{tag, slotPayload(data, s)})
		}
	}
	if nodeValueTag(data, node) == TagString {
		if err := t.alloc.Free(format.ReadU64(data, int(node+format.NodeValueOffset))); err != nil {
			return err
		}
	}
	for _, c := range children {
		switch c.tag {
		case tagSubNode:
			if err := t.freeSubtree(c.payload); err != nil {
				return err
			}
		case TagString:
			if err := t.alloc.Free(c.payload); err != nil {
				return err
			}
		}
	}
	return t.alloc.Free(node)
}
