package behavior

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlackboard_BasicOperations(t *testing.T) {
	t.Parallel()

	bb := new(Blackboard)
	require.Nil(t, bb.Get("missing"))
	require.Zero(t, bb.Len())

	bb.Set("task.handle", 7)
	bb.Set("carrying", true)
	bb.Set("target", "stockpile")
	bb.Set("ticks", int64(3))

	require.True(t, bb.Has("task.handle"))
	require.Equal(t, 7, bb.Int("task.handle"))
	require.Equal(t, 3, bb.Int("ticks"))
	require.True(t, bb.Bool("carrying"))
	require.Equal(t, "stockpile", bb.String("target"))
	require.Equal(t, []string{"carrying", "target", "task.handle", "ticks"}, bb.Keys())

	bb.Delete("carrying")
	require.False(t, bb.Bool("carrying"))
	require.Equal(t, 3, bb.Len())

	snap := bb.Snapshot()
	bb.Clear()
	require.Zero(t, bb.Len())
	require.Len(t, snap, 3, "snapshots are copies")
}

func TestBlackboard_Concurrent(t *testing.T) {
	t.Parallel()

	bb := new(Blackboard)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", i)
				bb.Set(key, j)
				_ = bb.Get(key)
				_ = bb.Keys()
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 8, bb.Len())
	require.Equal(t, 99, bb.Int("k3"))
}
