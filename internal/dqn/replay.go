package dqn

import (
	"golang.org/x/exp/rand"

	"github.com/AAWorks/binomial-pricer/internal/environment"
)

// Experience is one stored transition, with normalized observations
type Experience struct {
	State     [inputSize]float64
	Action    environment.Action
	Reward    float64
	NextState [inputSize]float64
	Done      bool
}

// ReplayBuffer is a bounded FIFO ring: once full, each Add evicts the oldest entry
type ReplayBuffer struct {
	entries []Experience
	next    int
	size    int
}

// NewReplayBuffer allocates a buffer holding up to capacity entries
func NewReplayBuffer(capacity int) *ReplayBuffer {
	return &ReplayBuffer{entries: make([]Experience, capacity)}
}

// Add appends e, evicting the oldest entry when full
func (b *ReplayBuffer) Add(e Experience) {
	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.size < len(b.entries) {
		b.size++
	}
}

// Len is the number of stored entries
func (b *ReplayBuffer) Len() int {
	return b.size
}

// Cap is the buffer capacity
func (b *ReplayBuffer) Cap() int {
	return len(b.entries)
}

// Oldest returns the entry that the next Add on a full buffer would evict
func (b *ReplayBuffer) Oldest() (Experience, bool) {
	if b.size == 0 {
		return Experience{}, false
	}
	if b.size < len(b.entries) {
		return b.entries[0], true
	}
	return b.entries[b.next], true
}

// Sample draws n entries uniformly with replacement
func (b *ReplayBuffer) Sample(rng *rand.Rand, n int) []Experience {
	if b.size == 0 {
		return nil
	}
	out := make([]Experience, n)
	for i := range out {
		out[i] = b.entries[rng.Intn(b.size)]
	}
	return out
}
