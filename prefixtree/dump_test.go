//go:build unix

package prefixtree

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDumpLoadRoundTrip(t *testing.T) {
	src := newTestTree(t)

	entries := map[string]Value{
		"":        NullValue(),
		"bool":    BoolValue(true),
		"double":  DoubleValue(2.38),
		"int":     IntValue(-3 << 20),
		"string":  StringValue([]byte("value-string")),
		"str/sub": StringValue([]byte{0x00, 0xFF, 0x10}),
	}
	for k, v := range entries {
		require.NoError(t, src.Insert([]byte(k), v))
	}

	var buf bytes.Buffer
	require.NoError(t, src.Dump(&buf))

	dst := newTestTree(t)
	require.NoError(t, dst.Load(&buf))

	require.Equal(t, src.Len(), dst.Len())
	require.Equal(t, src.NodeCount(), dst.NodeCount())
	for k, want := range entries {
		got, err := dst.At([]byte(k))
		require.NoError(t, err, "key %q", k)
		require.Equal(t, want, got, "key %q", k)
	}
}

func TestLoadOverwrites(t *testing.T) {
	src := newTestTree(t)
	require.NoError(t, src.Insert([]byte("k"), IntValue(2)))

	var buf bytes.Buffer
	require.NoError(t, src.Dump(&buf))

	dst := newTestTree(t)
	require.NoError(t, dst.Insert([]byte("k"), StringValue([]byte("old"))))
	require.NoError(t, dst.Insert([]byte("other"), BoolValue(false)))
	require.NoError(t, dst.Load(&buf))

	got, err := dst.At([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, IntValue(2), got)
	require.True(t, dst.Exists([]byte("other")))
}
