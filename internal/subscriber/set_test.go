package subscriber

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetAddIsIdempotent(t *testing.T) {
	s := NewSet(1, 2)

	require.True(t, s.Add(3))
	require.False(t, s.Add(3))
	require.Equal(t, 3, s.Len())
	require.True(t, s.Equal(NewSet(1, 2, 3)))
}

func TestSetRemoveIsIdempotent(t *testing.T) {
	s := NewSet(1, 2, 3)

	require.True(t, s.Remove(2))
	require.False(t, s.Remove(2))
	require.False(t, s.Remove(42))
	require.True(t, s.Equal(NewSet(1, 3)))
}

func TestNewSetDropsDuplicates(t *testing.T) {
	s := NewSet(5, 5, -7, 5)
	require.ElementsMatch(t, []int64{5, -7}, s.IDs())
}

func TestSetEqualIgnoresOrder(t *testing.T) {
	require.True(t, NewSet(1, 2, 3).Equal(NewSet(3, 1, 2)))
	require.False(t, NewSet(1, 2).Equal(NewSet(1, 2, 3)))
	require.False(t, NewSet(1, 2).Equal(NewSet(1, 4)))
}

func TestSetCloneIsIndependent(t *testing.T) {
	s := NewSet(1)
	c := s.Clone()
	c.Add(2)

	require.Equal(t, 1, s.Len())
	require.Equal(t, 2, c.Len())
}

func TestSetRemoveFromFrontAndMiddle(t *testing.T) {
	ids := make([]int64, 0, 50)
	for i := int64(1); i <= 50; i++ {
		ids = append(ids, i)
	}
	s := NewSet(ids...)

	require.True(t, s.Remove(1))
	require.True(t, s.Remove(25))
	require.False(t, s.Remove(25))
	require.Equal(t, 48, s.Len())
	require.False(t, s.Contains(1))
	require.False(t, s.Contains(25))
	require.True(t, s.Contains(50))
	require.Equal(t, int64(2), s.IDs()[0])
}

func TestNewSetLargeLoad(t *testing.T) {
	ids := make([]int64, 0, 20000)
	for i := int64(0); i < 20000; i++ {
		ids = append(ids, i)
	}

	start := time.Now()
	s := NewSet(ids...)
	elapsed := time.Since(start)

	require.Equal(t, 20000, s.Len())
	require.Less(t, elapsed, time.Second)
}
