package prefixtree

import "github.com/shmkit/shmkit/internal/format"

// Raw accessors over node blocks. A node is a 16-byte header followed
// by childCount slots of 16 bytes, covering the contiguous byte range
// [childStart, childStart+childCount). Callers pass the current pool
// mapping; offsets stay valid across remaps, addresses do not.

func nodeSizeFor(childCount int) uint64 {
	return format.NodeHeaderSize + uint64(childCount)*format.SlotSize
}

func nodeChildStart(data []byte, node uint64) int {
	return int(format.ReadU16(data, int(node+format.NodeChildStartOffset)))
}

func nodeChildCount(data []byte, node uint64) int {
	return int(format.ReadU16(data, int(node+format.NodeChildCountOffset)))
}

func nodeValueTag(data []byte, node uint64) Tag {
	return Tag(data[node+format.NodeValueTagOffset])
}

// initNode zeroes a node block for the given child range. Blocks are
// reused, so every byte must be written.
func initNode(data []byte, node uint64, childStart, childCount int) {
	end := node + nodeSizeFor(childCount)
	clear(data[node:end])
	format.PutU16(data, int(node+format.NodeChildStartOffset), uint16(childStart))
	format.PutU16(data, int(node+format.NodeChildCountOffset), uint16(childCount))
}

// slotOffByIndex returns the offset of the idx'th slot of node.
func slotOffByIndex(node uint64, idx int) uint64 {
	return node + format.NodeHeaderSize + uint64(idx)*format.SlotSize
}

// nodeSlot returns the slot offset for byte b, or ok=false when b is
// outside the node's child range.
func nodeSlot(data []byte, node uint64, b byte) (uint64, bool) {
	start := nodeChildStart(data, node)
	count := nodeChildCount(data, node)
	if int(b) < start || int(b) >= start+count {
		return 0, false
	}
	return slotOffByIndex(node, int(b)-start), true
}

func slotTag(data []byte, slot uint64) Tag {
	return Tag(data[slot+format.SlotTagOffset])
}

func slotPayload(data []byte, slot uint64) uint64 {
	return format.ReadU64(data, int(slot+format.SlotPayloadOffset))
}

func setSlot(data []byte, slot uint64, tag Tag, payload uint64) {
	// Payload first: a racing reader must never pair a fresh tag with
	// a stale payload.
	format.PutU64(data, int(slot+format.SlotPayloadOffset), payload)
	data[slot+format.SlotTagOffset] = byte(tag)
}

func clearSlot(data []byte, slot uint64) {
	data[slot+format.SlotTagOffset] = byte(TagMissing)
	format.PutU64(data, int(slot+format.SlotPayloadOffset), 0)
}

// occupiedSlots counts child slots that hold a subnode or a terminal
// value.
func occupiedSlots(data []byte, node uint64) int {
	count := nodeChildCount(data, node)
	occ := 0
	for idx := 0; idx < count; idx++ {
		if slotTag(data, slotOffByIndex(node, idx)) != TagMissing {
			occ++
		}
	}
	return occ
}
