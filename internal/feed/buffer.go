package feed

import (
	"sync"
)

// eventBuffer is a thread-safe FIFO of outbound feed messages that doubles
// its capacity when it reaches 70% full. Broadcast never blocks on a slow
// reader; the hub instead watches Len and cuts off subscribers whose
// buffers pass the lag limit.
type eventBuffer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []Message
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool
}

func newEventBuffer(initialCapacity int) *eventBuffer {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	b := &eventBuffer{
		buf:      make([]Message, initialCapacity),
		capacity: initialCapacity,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// push adds a message to the buffer, growing it if at 70% capacity.
// Returns false if the buffer is closed.
func (b *eventBuffer) push(msg Message) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold {
		b.grow()
	}

	b.buf[b.tail] = msg
	b.tail = (b.tail + 1) % b.capacity
	b.count++

	b.cond.Signal()
	return true
}

// pop removes and returns the oldest message, blocking until one is
// available or the buffer is closed. Returns false once closed and drained.
func (b *eventBuffer) pop() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}

	if b.count == 0 && b.closed {
		return Message{}, false
	}

	msg := b.buf[b.head]
	b.buf[b.head] = Message{} // Clear reference for GC
	b.head = (b.head + 1) % b.capacity
	b.count--

	return msg, true
}

// tryPop removes and returns the oldest message without blocking.
func (b *eventBuffer) tryPop() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return Message{}, false
	}

	msg := b.buf[b.head]
	b.buf[b.head] = Message{}
	b.head = (b.head + 1) % b.capacity
	b.count--

	return msg, true
}

// close wakes all blocked readers. Subsequent pushes return false; readers
// drain remaining messages then see the closed signal.
func (b *eventBuffer) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

func (b *eventBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// grow doubles capacity. Must be called with lock held.
func (b *eventBuffer) grow() {
	newCapacity := b.capacity * 2
	newBuf := make([]Message, newCapacity)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}

	b.buf = newBuf
	b.head = 0
	b.tail = b.count
	b.capacity = newCapacity
}
