//go:build unix

package prefixtree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestReorganization drives the node structure through shared-prefix
// inserts, erases that prune or collapse nodes, and a final clear,
// checking the live node count at every step.
func TestReorganization(t *testing.T) {
	tree := newTestTree(t)
	baseline := tree.Allocator().BytesAllocated()

	expected := make(map[string]Value)
	verifyState(t, tree, expected, 1)

	// <> null
	//   a null
	//     b null
	//       (c) "abc"
	require.NoError(t, tree.Insert([]byte("abc"), StringValue([]byte("abc"))))
	expected["abc"] = StringValue([]byte("abc"))
	verifyState(t, tree, expected, 3)

	// <> null
	//   a null
	//     b "ab"
	//       (c) "abc"
	require.NoError(t, tree.Insert([]byte("ab"), StringValue([]byte("ab"))))
	expected["ab"] = StringValue([]byte("ab"))
	verifyState(t, tree, expected, 3)

	// <> null
	//   a null
	//     (b) "ab"
	_, err := tree.Erase([]byte("abc"))
	require.NoError(t, err)
	delete(expected, "abc")
	verifyState(t, tree, expected, 2)

	// <> ""
	//   a null
	//     (b) "ab"
	require.NoError(t, tree.Insert([]byte(""), StringValue([]byte(""))))
	expected[""] = StringValue([]byte(""))
	verifyState(t, tree, expected, 2)

	// <> ""
	//   a null
	//     b "ab"
	//       c null
	//         (d) "abcd"
	require.NoError(t, tree.Insert([]byte("abcd"), StringValue([]byte("abcd"))))
	expected["abcd"] = StringValue([]byte("abcd"))
	verifyState(t, tree, expected, 4)

	// <> ""
	//   a null
	//     b null
	//       c null
	//         (d) "abcd"
	_, err = tree.Erase([]byte("ab"))
	require.NoError(t, err)
	delete(expected, "ab")
	verifyState(t, tree, expected, 4)

	// <> ""
	//   a null
	//     b null
	//       c null
	//         d "abcd"
	//           (e) "abcde"
	require.NoError(t, tree.Insert([]byte("abcde"), StringValue([]byte("abcde"))))
	expected["abcde"] = StringValue([]byte("abcde"))
	verifyState(t, tree, expected, 5)

	// <> ""
	//   a null
	//     b null
	//       c null
	//         d "abcd"
	//           (e) "abcde"
	//           (f) "abcdf"
	require.NoError(t, tree.Insert([]byte("abcdf"), StringValue([]byte("abcdf"))))
	expected["abcdf"] = StringValue([]byte("abcdf"))
	verifyState(t, tree, expected, 5)

	// <> ""
	//   a null
	//     b null
	//       c null
	//         d "abcd"
	//           (e) "abcde"
	//           (f) "abcdf"
	//         (e) "abce"
	require.NoError(t, tree.Insert([]byte("abce"), StringValue([]byte("abce"))))
	expected["abce"] = StringValue([]byte("abce"))
	verifyState(t, tree, expected, 5)

	// <> ""
	//   a null
	//     b null
	//       c null
	//         d "abcd"
	//           (e) "abcde"
	//           (f) "abcdf"
	//         e "abce"
	//           (f) "abcef"
	require.NoError(t, tree.Insert([]byte("abcef"), StringValue([]byte("abcef"))))
	expected["abcef"] = StringValue([]byte("abcef"))
	verifyState(t, tree, expected, 6)

	// <> null
	require.NoError(t, tree.Clear())
	clear(expected)
	verifyState(t, tree, expected, 1)

	require.Equal(t, baseline, tree.Allocator().BytesAllocated())
	require.NoError(t, tree.Allocator().Verify())
}
