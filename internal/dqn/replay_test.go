package dqn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestReplayBufferEvictsOldestFirst(t *testing.T) {
	b := NewReplayBuffer(3)
	assert.Equal(t, 3, b.Cap())
	_, ok := b.Oldest()
	assert.False(t, ok)

	for i := 0; i < 5; i++ {
		b.Add(Experience{Reward: float64(i)})
	}
	assert.Equal(t, 3, b.Len())

	oldest, ok := b.Oldest()
	require.True(t, ok)
	assert.Equal(t, 2.0, oldest.Reward)

	seen := map[float64]bool{}
	for _, e := range b.Sample(rand.New(rand.NewSource(1)), 200) {
		seen[e.Reward] = true
	}
	assert.Equal(t, map[float64]bool{2: true, 3: true, 4: true}, seen)
}

func TestReplayBufferPartiallyFilled(t *testing.T) {
	b := NewReplayBuffer(10)
	assert.Nil(t, b.Sample(rand.New(rand.NewSource(1)), 4))

	b.Add(Experience{Reward: 1})
	b.Add(Experience{Reward: 2})

	oldest, ok := b.Oldest()
	require.True(t, ok)
	assert.Equal(t, 1.0, oldest.Reward)

	batch := b.Sample(rand.New(rand.NewSource(1)), 4)
	require.Len(t, batch, 4)
	for _, e := range batch {
		assert.Contains(t, []float64{1, 2}, e.Reward)
	}
}
