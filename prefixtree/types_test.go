//go:build unix

package prefixtree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueTypes(t *testing.T) {
	intLongU64 := uint64(0x9999999999999999)
	intLongVal := int64(intLongU64)

	tree := newTestTree(t)
	baseline := tree.Allocator().BytesAllocated()

	require.Zero(t, tree.Len())
	require.Equal(t, uint64(1), tree.NodeCount())

	require.NoError(t, tree.Insert([]byte("key-string"), StringValue([]byte("value-string"))))
	require.NoError(t, tree.Insert([]byte("key-int"), IntValue(1024*1024*-3)))
	require.NoError(t, tree.Insert([]byte("key-int-long"), IntValue(intLongVal)))
	require.NoError(t, tree.Insert([]byte("key-double"), DoubleValue(2.38)))
	require.NoError(t, tree.Insert([]byte("key-true"), BoolValue(true)))
	require.NoError(t, tree.Insert([]byte("key-false"), BoolValue(false)))
	require.NoError(t, tree.Insert([]byte("key-null"), NullValue()))

	require.Equal(t, uint64(7), tree.Len())
	require.Equal(t, uint64(32), tree.NodeCount())

	_, err := tree.At([]byte("key-missing"))
	require.ErrorIs(t, err, ErrNotFound)

	cases := map[string]Value{
		"key-string":   StringValue([]byte("value-string")),
		"key-int":      IntValue(1024 * 1024 * -3),
		"key-int-long": IntValue(intLongVal),
		"key-double":   DoubleValue(2.38),
		"key-true":     BoolValue(true),
		"key-false":    BoolValue(false),
		"key-null":     NullValue(),
	}
	for k, want := range cases {
		got, err := tree.At([]byte(k))
		require.NoError(t, err, "key %q", k)
		require.Equal(t, want, got, "key %q", k)
	}

	// TypeOf agrees with At, and is non-failing for absent keys.
	require.Equal(t, TagMissing, tree.TypeOf([]byte("key-missing")))
	require.Equal(t, TagString, tree.TypeOf([]byte("key-string")))
	require.Equal(t, TagInt, tree.TypeOf([]byte("key-int")))
	require.Equal(t, TagInt, tree.TypeOf([]byte("key-int-long")))
	require.Equal(t, TagDouble, tree.TypeOf([]byte("key-double")))
	require.Equal(t, TagBool, tree.TypeOf([]byte("key-true")))
	require.Equal(t, TagBool, tree.TypeOf([]byte("key-false")))
	require.Equal(t, TagNull, tree.TypeOf([]byte("key-null")))

	require.False(t, tree.Exists([]byte("key-missing")))
	for k := range cases {
		require.True(t, tree.Exists([]byte(k)), "key %q", k)
	}

	require.NoError(t, tree.Clear())
	require.Zero(t, tree.Len())
	require.Equal(t, uint64(1), tree.NodeCount())
	require.Equal(t, baseline, tree.Allocator().BytesAllocated())
}

func TestStringOverwriteReleasesOldBlock(t *testing.T) {
	tree := newTestTree(t)
	baseline := tree.Allocator().BytesAllocated()

	require.NoError(t, tree.Insert([]byte("k"), StringValue(make([]byte, 4096))))
	big := tree.Allocator().BytesAllocated()

	require.NoError(t, tree.Insert([]byte("k"), StringValue([]byte("tiny"))))
	small := tree.Allocator().BytesAllocated()
	require.Less(t, small, big)

	// Replacing a string with a scalar also releases the block.
	require.NoError(t, tree.Insert([]byte("k"), IntValue(5)))
	_, err := tree.Erase([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, baseline, tree.Allocator().BytesAllocated())
	require.NoError(t, tree.Allocator().Verify())
}
