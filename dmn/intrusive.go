package dmn

import (
	"sync"
	"time"
)

// highIntensityThreshold marks intrusive thoughts that feed exhaustion.
const highIntensityThreshold = 7

// Thought is a spontaneous, unprompted idea injected into the cycle loop.
// Intensity runs 1-10; thoughts above the high-intensity threshold add an
// exhaustion signal when processed.
type Thought struct {
	Content    string
	Intensity  int
	Difficulty int
	CreatedAt  time.Time
}

// Disruptive reports whether the thought is intense enough to contribute an
// exhaustion signal.
func (t Thought) Disruptive() bool {
	return t.Intensity > highIntensityThreshold
}

// IntrusiveQueue buffers intrusive thoughts between cycles. Producers (the
// host application, a spontaneous generator) add thoughts from any
// goroutine; the driver drains pending thoughts once per cycle.
type IntrusiveQueue struct {
	mu      sync.Mutex
	pending []Thought
	total   int
}

// NewIntrusiveQueue creates an empty queue.
func NewIntrusiveQueue() *IntrusiveQueue {
	return &IntrusiveQueue{}
}

// Add enqueues a thought. Intensity is clamped to 1-10.
func (q *IntrusiveQueue) Add(content string, intensity, difficulty int) {
	if intensity < 1 {
		intensity = 1
	}
	if intensity > 10 {
		intensity = 10
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, Thought{
		Content:    content,
		Intensity:  intensity,
		Difficulty: difficulty,
		CreatedAt:  time.Now(),
	})
	q.total++
}

// Drain returns and clears the pending thoughts.
func (q *IntrusiveQueue) Drain() []Thought {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// Len returns the number of pending thoughts.
func (q *IntrusiveQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Total returns the number of thoughts ever enqueued.
func (q *IntrusiveQueue) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.total
}
