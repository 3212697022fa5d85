package list

type Node[T any] struct {
	prev  *Node[T]
	next  *Node[T]
	Value T
}

// Next returns the node after n, or nil at the tail.
func (n *Node[T]) Next() *Node[T] {
	return n.next
}

// Prev returns the node before n, or nil at the head.
func (n *Node[T]) Prev() *Node[T] {
	return n.prev
}

type Iterator[T any] struct {
	next      *Node[T]
	direction int
}

// List is a doubly linked list. The zero value is an empty list ready to use.
type List[T any] struct {
	head   *Node[T]
	tail   *Node[T]
	length int
}

const (
	DirectionHead = iota
	DirectionTail
)

func New[T any]() *List[T] {
	return &List[T]{}
}

// Clear unlinks every node so nothing keeps the values reachable.
func (l *List[T]) Clear() {
	current := l.head
	for current != nil {
		next := current.next
		current.prev, current.next = nil, nil
		current = next
	}
	l.head, l.tail = nil, nil
	l.length = 0
}

func (l *List[T]) PushFront(value T) *Node[T] {
	node := &Node[T]{Value: value}
	if l.head == nil {
		l.head, l.tail = node, node
	} else {
		node.next, l.head.prev, l.head = l.head, node, node
	}
	l.length++
	return node
}

func (l *List[T]) PushBack(value T) *Node[T] {
	node := &Node[T]{Value: value}
	if l.tail == nil {
		l.head, l.tail = node, node
	} else {
		node.prev, l.tail.next, l.tail = l.tail, node, node
	}
	l.length++
	return node
}

// Front returns the head node, or nil if the list is empty.
func (l *List[T]) Front() *Node[T] {
	return l.head
}

// Back returns the tail node, or nil if the list is empty.
func (l *List[T]) Back() *Node[T] {
	return l.tail
}

// PopFront removes the head node and returns its value.
func (l *List[T]) PopFront() (T, bool) {
	if l.head == nil {
		var zero T
		return zero, false
	}
	node := l.head
	l.Remove(node)
	return node.Value, true
}

// Remove unlinks node from the list. node must belong to l.
func (l *List[T]) Remove(node *Node[T]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.next, node.prev = nil, nil
	l.length--
}

func (l *List[T]) Len() int {
	return l.length
}

func (l *List[T]) NewIterator(direction int) *Iterator[T] {
	it := &Iterator[T]{direction: direction}
	if direction == DirectionHead {
		it.next = l.head
	} else {
		it.next = l.tail
	}
	return it
}

// Next returns the current node and advances. It is safe to Remove the
// returned node before calling Next again.
func (it *Iterator[T]) Next() *Node[T] {
	current := it.next
	if current == nil {
		return nil
	}
	if it.direction == DirectionHead {
		it.next = current.next
	} else {
		it.next = current.prev
	}
	return current
}
