package list

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func values[T any](l *List[T], direction int) []T {
	var out []T
	it := l.NewIterator(direction)
	for node := it.Next(); node != nil; node = it.Next() {
		out = append(out, node.Value)
	}
	return out
}

func TestNew(t *testing.T) {
	list := New[int]()
	assert.Nil(t, list.Front())
	assert.Nil(t, list.Back())
	assert.Equal(t, 0, list.Len())
}

func TestPushFront(t *testing.T) {
	list := New[int]()
	list.PushFront(5)
	list.PushFront(4)
	assert.Equal(t, 4, list.Front().Value)
	assert.Equal(t, 5, list.Back().Value)
	assert.Equal(t, 2, list.Len())
}

func TestPushBack(t *testing.T) {
	list := New[int]()
	list.PushBack(5)
	assert.Equal(t, 5, list.Front().Value)
	assert.Equal(t, 5, list.Back().Value)
	assert.Equal(t, 1, list.Len())

	list.PushBack(10)
	assert.Equal(t, 5, list.Front().Value)
	assert.Equal(t, 10, list.Back().Value)
	assert.Equal(t, 2, list.Len())
}

func TestPopFrontIsFIFO(t *testing.T) {
	list := New[string]()
	list.PushBack("a")
	list.PushBack("b")
	list.PushBack("c")

	for _, want := range []string{"a", "b", "c"} {
		got, ok := list.PopFront()
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := list.PopFront()
	assert.False(t, ok)
	assert.Equal(t, 0, list.Len())
	assert.Nil(t, list.Back())
}

func TestClear(t *testing.T) {
	list := New[int]()
	list.PushBack(5)
	list.PushBack(10)
	list.Clear()
	assert.Nil(t, list.Front())
	assert.Nil(t, list.Back())
	assert.Equal(t, 0, list.Len())

	list.PushBack(1)
	assert.Equal(t, []int{1}, values(list, DirectionHead))
}

func TestRemove(t *testing.T) {
	list := New[int]()
	first := list.PushBack(5)
	middle := list.PushBack(7)
	list.PushBack(10)

	list.Remove(middle)
	assert.Equal(t, []int{5, 10}, values(list, DirectionHead))

	list.Remove(first)
	assert.Equal(t, 1, list.Len())
	assert.Equal(t, 10, list.Front().Value)
	assert.Equal(t, 10, list.Back().Value)
}

func TestIteratorDirections(t *testing.T) {
	list := New[int]()
	for i := 1; i <= 3; i++ {
		list.PushBack(i)
	}
	assert.Equal(t, []int{1, 2, 3}, values(list, DirectionHead))
	assert.Equal(t, []int{3, 2, 1}, values(list, DirectionTail))
}

func TestIteratorSurvivesRemoval(t *testing.T) {
	list := New[int]()
	for i := 1; i <= 4; i++ {
		list.PushBack(i)
	}

	it := list.NewIterator(DirectionHead)
	for node := it.Next(); node != nil; node = it.Next() {
		if node.Value%2 == 0 {
			list.Remove(node)
		}
	}
	assert.Equal(t, []int{1, 3}, values(list, DirectionHead))
}
