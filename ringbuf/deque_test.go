package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPopFIFO(t *testing.T) {
	d := New[int](4)
	d.PushBack(1)
	d.PushBack(2)
	d.PushBack(3)

	require.Equal(t, 3, d.Len())
	require.Equal(t, 1, d.PopFront())
	require.Equal(t, 2, d.PopFront())
	require.Equal(t, 1, d.Len())
}

func TestGrowBeyondInitialCapacity(t *testing.T) {
	d := New[int](2)
	for i := 0; i < 100; i++ {
		d.PushBack(i)
	}
	require.Equal(t, 100, d.Len())
	for i := 0; i < 100; i++ {
		require.Equal(t, i, d.At(i))
	}
}

func TestWrapAroundAfterPopAndPush(t *testing.T) {
	d := New[int](4)
	d.PushBack(1)
	d.PushBack(2)
	d.PushBack(3)
	d.PushBack(4)
	d.PopFront()
	d.PopFront()
	d.PushBack(5)
	d.PushBack(6)

	require.Equal(t, []int{3, 4, 5, 6}, d.Slice())
}

func TestFrontBack(t *testing.T) {
	d := New[int](4)
	d.PushBack(10)
	d.PushBack(20)
	require.Equal(t, 10, d.Front())
	require.Equal(t, 20, d.Back())
}

func TestAtAndSet(t *testing.T) {
	d := New[int](4)
	d.PushBack(1)
	d.PushBack(2)
	d.Set(1, 99)
	require.Equal(t, 99, d.At(1))
}

func TestDropFront(t *testing.T) {
	d := New[int](8)
	for i := 0; i < 5; i++ {
		d.PushBack(i)
	}
	d.DropFront(3)
	require.Equal(t, []int{3, 4}, d.Slice())
}

func TestDropFrontMoreThanLen(t *testing.T) {
	d := New[int](4)
	d.PushBack(1)
	d.DropFront(10)
	require.Equal(t, 0, d.Len())
}

func TestReset(t *testing.T) {
	d := New[int](4)
	d.PushBack(1)
	d.PushBack(2)
	d.Reset()
	require.Equal(t, 0, d.Len())
	d.PushBack(3)
	require.Equal(t, 3, d.Front())
}

func TestAtOutOfRangePanics(t *testing.T) {
	d := New[int](4)
	d.PushBack(1)
	require.Panics(t, func() { d.At(5) })
}

func TestPopFrontEmptyPanics(t *testing.T) {
	d := New[int](4)
	require.Panics(t, func() { d.PopFront() })
}
