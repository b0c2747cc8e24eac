package dmn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntrusiveQueue_AddClampsIntensity(t *testing.T) {
	q := NewIntrusiveQueue()
	q.Add("too hot", 25, 3)
	q.Add("too cold", -4, 3)

	thoughts := q.Drain()
	require.Len(t, thoughts, 2)
	assert.Equal(t, 10, thoughts[0].Intensity)
	assert.Equal(t, 1, thoughts[1].Intensity)
}

func TestIntrusiveQueue_DrainEmptiesInOrder(t *testing.T) {
	q := NewIntrusiveQueue()
	q.Add("first", 5, 1)
	q.Add("second", 5, 1)
	assert.Equal(t, 2, q.Len())

	thoughts := q.Drain()
	require.Len(t, thoughts, 2)
	assert.Equal(t, "first", thoughts[0].Content)
	assert.Equal(t, "second", thoughts[1].Content)
	assert.False(t, thoughts[0].CreatedAt.IsZero())

	assert.Empty(t, q.Drain())
	assert.Equal(t, 0, q.Len())
}

func TestIntrusiveQueue_TotalSurvivesDrain(t *testing.T) {
	q := NewIntrusiveQueue()
	q.Add("a", 3, 1)
	q.Drain()
	q.Add("b", 3, 1)

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 2, q.Total())
}

func TestThought_Disruptive(t *testing.T) {
	assert.False(t, Thought{Intensity: 7}.Disruptive())
	assert.True(t, Thought{Intensity: 8}.Disruptive())
}
