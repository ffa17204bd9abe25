//go:build unix

package prefixtree

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shmkit/shmkit/shm"
	"github.com/shmkit/shmkit/shm/alloc"
)

const readerPoolEnv = "SHMKIT_READER_POOL"

// TestConcurrentReaders forks eight reader processes, then writes an
// ascending integer sequence into one key at 50 ms intervals. Every
// reader must observe each value in order within its deadline. The
// readers are separate processes re-executing this test binary, so the
// path exercised is the real cross-process one: attach by name, remap
// on growth, acquire-load of the value word.
func TestConcurrentReaders(t *testing.T) {
	if path := os.Getenv(readerPoolEnv); path != "" {
		runConcurrentReader(t, path)
		return
	}
	if testing.Short() {
		t.Skip("spawns reader processes")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "pool")

	p, err := shm.Open(path)
	require.NoError(t, err)
	defer p.Close()
	a, err := alloc.NewSimple(p)
	require.NoError(t, err)
	tree, err := New(a, 0)
	require.NoError(t, err)

	exe, err := os.Executable()
	require.NoError(t, err)

	var readers []*exec.Cmd
	for i := 0; i < 8; i++ {
		cmd := exec.Command(exe, "-test.run", "^TestConcurrentReaders$")
		cmd.Env = append(os.Environ(), readerPoolEnv+"="+path)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		require.NoError(t, cmd.Start())
		readers = append(readers, cmd)
	}

	for v := int64(100); v < 110; v++ {
		time.Sleep(50 * time.Millisecond)
		require.NoError(t, tree.Insert([]byte("key1"), IntValue(v)))
	}

	for i, cmd := range readers {
		require.NoError(t, cmd.Wait(), "reader %d failed", i)
	}
}

// runConcurrentReader is the child half: poll key1 until the whole
// sequence 100..109 has been observed in order.
func runConcurrentReader(t *testing.T, path string) {
	p, err := shm.Open(path)
	require.NoError(t, err)
	defer p.Close()
	a, err := alloc.NewSimple(p)
	require.NoError(t, err)
	tree, err := New(a, 0)
	require.NoError(t, err)

	want := int64(100)
	deadline := time.Now().Add(3 * time.Second)
	for want < 110 && time.Now().Before(deadline) {
		v, err := tree.At([]byte("key1"))
		if err == nil && v.Tag == TagInt && v.Int == want {
			want++
		}
		runtime.Gosched()
	}
	require.Equal(t, int64(110), want, "reader stalled at %d", want)
}
