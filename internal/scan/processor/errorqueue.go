package processor

// ErrorQueue is the bounded sliding buffer of recently failed item
// identifiers. Any successful classification clears it unconditionally;
// reaching capacity triggers the retry/escalation check. Its length is
// always within [0, capacity].
type ErrorQueue struct {
	capacity int
	items    []string
}

// NewErrorQueue creates an empty queue with the given capacity.
func NewErrorQueue(capacity int) *ErrorQueue {
	if capacity <= 0 {
		capacity = 3
	}
	return &ErrorQueue{capacity: capacity}
}

// Push appends a failed item, sliding out the oldest when at capacity.
func (q *ErrorQueue) Push(item string) {
	if len(q.items) == q.capacity {
		q.items = q.items[1:]
	}
	q.items = append(q.items, item)
}

// Full reports whether the queue reached capacity.
func (q *ErrorQueue) Full() bool {
	return len(q.items) == q.capacity
}

// Len returns the current length.
func (q *ErrorQueue) Len() int {
	return len(q.items)
}

// Clear empties the queue.
func (q *ErrorQueue) Clear() {
	q.items = q.items[:0]
}

// Items returns a copy of the queued identifiers in original failure order.
func (q *ErrorQueue) Items() []string {
	return append([]string(nil), q.items...)
}
