package ringbuf

// Ring is a fixed-capacity FIFO sequence. Pushing onto a full ring evicts the
// oldest element. The zero value is unusable; construct with New.
type Ring[T any] struct {
	buf  []T
	head int // index of the oldest element
	size int
}

// New creates a ring holding at most capacity elements.
// A capacity below 1 is treated as 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v as the newest element. When the ring was full the evicted
// oldest element is returned with ok set to true.
func (r *Ring[T]) Push(v T) (evicted T, ok bool) {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = v
		r.size++
		return evicted, false
	}
	evicted = r.buf[r.head]
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	return evicted, true
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int { return r.size }

// At returns the i-th element counting from the oldest (0) to the newest (Len-1).
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.size {
		panic("ringbuf: index out of range")
	}
	return r.buf[(r.head+i)%len(r.buf)]
}

// Newest returns the most recently pushed element.
func (r *Ring[T]) Newest() (v T, ok bool) {
	if r.size == 0 {
		return v, false
	}
	return r.At(r.size - 1), true
}

// Items returns a copy of the contents, oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.At(i)
	}
	return out
}

// Reversed returns a copy of the contents, newest first.
func (r *Ring[T]) Reversed() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.At(r.size - 1 - i)
	}
	return out
}

// Each calls fn for every element from oldest to newest until fn returns false.
func (r *Ring[T]) Each(fn func(i int, v T) bool) {
	for i := 0; i < r.size; i++ {
		if !fn(i, r.At(i)) {
			return
		}
	}
}
