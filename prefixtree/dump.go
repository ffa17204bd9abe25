package prefixtree

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Dump streams the tree to w as msgpack: the key count, then one
// (key, tag, payload) group per key in lexicographic order. Null
// values are written as (key, tag) with no payload.
func (t *Tree) Dump(w io.Writer) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.EncodeUint(t.Len()); err != nil {
		return err
	}
	it := t.Iter()
	for it.Next() {
		if err := enc.EncodeBytes(it.Key()); err != nil {
			return err
		}
		v := it.Value()
		if err := enc.EncodeUint8(uint8(v.Tag)); err != nil {
			return err
		}
		var err error
		switch v.Tag {
		case TagBool:
			err = enc.EncodeBool(v.Bool)
		case TagInt:
			err = enc.EncodeInt(v.Int)
		case TagDouble:
			err = enc.EncodeFloat64(v.Double)
		case TagString:
			err = enc.EncodeBytes(v.Str)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Load inserts every entry of a Dump stream into the tree. Existing
// keys are overwritten; other keys are left alone.
func (t *Tree) Load(r io.Reader) error {
	dec := msgpack.NewDecoder(r)
	count, err := dec.DecodeUint64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		key, err := dec.DecodeBytes()
		if err != nil {
			return err
		}
		rawTag, err := dec.DecodeUint8()
		if err != nil {
			return err
		}
		var v Value
		switch Tag(rawTag) {
		case TagNull:
			v = NullValue()
		case TagBool:
			b, err := dec.DecodeBool()
			if err != nil {
				return err
			}
			v = BoolValue(b)
		case TagInt:
			i, err := dec.DecodeInt64()
			if err != nil {
				return err
			}
			v = IntValue(i)
		case TagDouble:
			f, err := dec.DecodeFloat64()
			if err != nil {
				return err
			}
			v = DoubleValue(f)
		case TagString:
			s, err := dec.DecodeBytes()
			if err != nil {
				return err
			}
			v = StringValue(s)
		default:
			return fmt.Errorf("prefixtree: unknown value tag %d in stream", rawTag)
		}
		if err := t.Insert(key, v); err != nil {
			return err
		}
	}
	return nil
}
