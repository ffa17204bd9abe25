package prefixtree

import (
	"bytes"
	"fmt"
	"math"
)

// Tag identifies what a value cell holds. Zero doubles as the on-disk
// "no value here" marker and the TypeOf result for an absent key.
type Tag uint8

const (
	// TagMissing is returned by TypeOf for absent keys.
	TagMissing Tag = 0

	// tagSubNode marks a child slot that points at a node rather than
	// holding a terminal value. Never surfaces through the API.
	tagSubNode Tag = 1

	TagNull   Tag = 2
	TagBool   Tag = 3
	TagInt    Tag = 4
	TagDouble Tag = 5
	TagString Tag = 6
)

// String returns the tag name.
func (t Tag) String() string {
	switch t {
	case TagMissing:
		return "Missing"
	case TagNull:
		return "Null"
	case TagBool:
		return "Bool"
	case TagInt:
		return "Int"
	case TagDouble:
		return "Double"
	case TagString:
		return "String"
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// Value is a tagged variant: null, bool, int64, float64, or a byte
// string. Scalars are stored inline in a node's value cell; strings
// live in their own allocator block referenced by offset.
type Value struct {
	Tag    Tag
	Bool   bool
	Int    int64
	Double float64
	Str    []byte
}

// NullValue returns the null variant.
func NullValue() Value {
	return Value{Tag: TagNull}
}

// BoolValue returns a boolean variant.
func BoolValue(b bool) Value {
	return Value{Tag: TagBool, Bool: b}
}

// IntValue returns an integer variant.
func IntValue(i int64) Value {
	return Value{Tag: TagInt, Int: i}
}

// DoubleValue returns a floating-point variant.
func DoubleValue(f float64) Value {
	return Value{Tag: TagDouble, Double: f}
}

// StringValue returns a string variant. The bytes are copied.
func StringValue(s []byte) Value {
	return Value{Tag: TagString, Str: append([]byte(nil), s...)}
}

// Equal reports whether two values have the same tag and contents.
func (v Value) Equal(o Value) bool {
	if v.Tag != o.Tag {
		return false
	}
	switch v.Tag {
	case TagBool:
		return v.Bool == o.Bool
	case TagInt:
		return v.Int == o.Int
	case TagDouble:
		return v.Double == o.Double
	case TagString:
		return bytes.Equal(v.Str, o.Str)
	}
	return true
}

// String renders the value for diagnostics.
func (v Value) String() string {
	switch v.Tag {
	case TagNull:
		return "null"
	case TagBool:
		return fmt.Sprintf("%t", v.Bool)
	case TagInt:
		return fmt.Sprintf("%d", v.Int)
	case TagDouble:
		return fmt.Sprintf("%g", v.Double)
	case TagString:
		return fmt.Sprintf("%q", v.Str)
	}
	return v.Tag.String()
}

// encodePayload packs a value's inline word: the scalar bits, or the
// string block offset.
func encodePayload(v Value, strOff uint64) uint64 {
	switch v.Tag {
	case TagBool:
		if v.Bool {
			return 1
		}
		return 0
	case TagInt:
		return uint64(v.Int)
	case TagDouble:
		return math.Float64bits(v.Double)
	case TagString:
		return strOff
	}
	return 0
}
